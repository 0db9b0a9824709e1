package pipeline

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/trackviz/internal/detection"
	"github.com/ironsheep/trackviz/internal/geometry"
	"github.com/ironsheep/trackviz/internal/imaging"
	"github.com/ironsheep/trackviz/internal/selection"
)

// Config holds every construction-time parameter.
type Config struct {
	// MaxLevel is the index of the coarsest pyramid level (L levels + 1).
	MaxLevel int

	Selection selection.Config
	Harris    detection.HarrisConfig
	Features  detection.FeatureConfig

	// DetectTemplates and DetectFeatures skip the corresponding stage when
	// false. The pyramid is always built.
	DetectTemplates bool
	DetectFeatures  bool
}

// DefaultConfig returns three pyramid levels (0..2), a 15 pixel template,
// a 10x10 bin grid and the default detectors.
func DefaultConfig() Config {
	return Config{
		MaxLevel:        2,
		Selection:       selection.DefaultConfig(),
		Harris:          detection.DefaultHarrisConfig(),
		Features:        detection.DefaultFeatureConfig(),
		DetectTemplates: true,
		DetectFeatures:  true,
	}
}

// Model is the result of construction. It is never modified afterwards.
type Model struct {
	Reference *imaging.Reference
	Pyramid   *imaging.Pyramid

	// Templates[k] holds the selected points of level k, in level-k pixels.
	Templates [][]geometry.Point

	// Features are in full-resolution reference pixels.
	Features []detection.Keypoint

	Config Config
}

// Build constructs the model for ref. The logger may be nil.
func Build(ref *imaging.Reference, cfg Config, logger *logrus.Logger) (*Model, error) {
	if ref == nil || ref.Gray == nil {
		return nil, fmt.Errorf("%w: no reference image", geometry.ErrInvalidConfiguration)
	}
	if err := cfg.Selection.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.PanicLevel)
	}

	start := time.Now()
	size := ref.Size()
	logger.WithFields(logrus.Fields{
		"width":     size.Width,
		"height":    size.Height,
		"max_level": cfg.MaxLevel,
	}).Info("Building tracking model")

	pyr, err := imaging.BuildPyramid(ref.Gray, cfg.MaxLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to build pyramid: %w", err)
	}

	templates := make([][]geometry.Point, len(pyr.Levels))
	for level, img := range pyr.Levels {
		if !cfg.DetectTemplates {
			templates[level] = []geometry.Point{}
			continue
		}
		b := img.Bounds()
		corners := detection.DetectCorners(img, cfg.Harris)
		points, err := selection.Select(corners, b.Dx(), b.Dy(), cfg.Selection)
		if err != nil {
			return nil, fmt.Errorf("failed to select templates on level %d: %w", level, err)
		}
		templates[level] = points

		logger.WithFields(logrus.Fields{
			"level":     level,
			"width":     b.Dx(),
			"height":    b.Dy(),
			"corners":   len(corners),
			"templates": len(points),
		}).Debug("Selected template points")
	}

	features := []detection.Keypoint{}
	if cfg.DetectFeatures {
		detector, err := detection.NewFeatureDetector(cfg.Features)
		if err != nil {
			return nil, fmt.Errorf("failed to create feature detector: %w", err)
		}
		features = detector.Detect(ref.Gray)
	}

	m := &Model{
		Reference: ref,
		Pyramid:   pyr,
		Templates: templates,
		Features:  features,
		Config:    cfg,
	}

	logger.WithFields(logrus.Fields{
		"levels":    len(pyr.Levels),
		"templates": m.TemplateCounts(),
		"features":  len(features),
		"detector":  cfg.Features.Type.String(),
		"elapsed":   time.Since(start).String(),
	}).Info("Tracking model ready")

	return m, nil
}

// MaxLevel returns the index of the coarsest level.
func (m *Model) MaxLevel() int {
	return m.Pyramid.MaxLevel()
}

// ClampLevel limits level to 0..MaxLevel.
func (m *Model) ClampLevel(level int) int {
	return imaging.Clamp(level, 0, m.MaxLevel())
}

// LevelSpace returns the coordinate space of the given level (clamped).
func (m *Model) LevelSpace(level int) geometry.Space {
	level = m.ClampLevel(level)
	b := m.Pyramid.Level(level).Bounds()
	return geometry.LevelSpace(level, b.Dx(), b.Dy())
}

// TemplateCounts returns the number of template points per level.
func (m *Model) TemplateCounts() []int {
	counts := make([]int, len(m.Templates))
	for i, t := range m.Templates {
		counts[i] = len(t)
	}
	return counts
}
