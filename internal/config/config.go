package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/trackviz/internal/detection"
	"github.com/ironsheep/trackviz/internal/geometry"
	"github.com/ironsheep/trackviz/internal/overlay"
	"github.com/ironsheep/trackviz/internal/pipeline"
)

// EnvLogLevel names the environment variable consulted for the log level.
const EnvLogLevel = "TRACKVIZ_LOG_LEVEL"

var (
	// ErrHelp is returned when usage was requested.
	ErrHelp = errors.New("help requested")
	// ErrVersion is returned when the version was requested.
	ErrVersion = errors.New("version requested")
)

// Options is the parsed command line.
type Options struct {
	// ImagePath is the reference image (PNG, JPEG or GIF).
	ImagePath string

	// WidthMM is the printed width of the reference, in millimetres.
	WidthMM float64

	// VideoConfig and CameraParams are handed to the tracker unchanged.
	VideoConfig  string
	CameraParams string

	ShowFeatures  bool
	ShowTemplates bool
	ShowBins      bool

	LogLevel logrus.Level

	MaxLevel      int
	TemplateWidth int
	BinCount      int
	Detector      detection.DetectorType
	FeatureLimit  int
	FeatureThresh int
	RansacThresh  float64
	Window        geometry.Size
	SnapshotPath  string

	// Colors overrides palette entries, applied in order.
	Colors []ColorOverride
}

// ColorOverride replaces one palette entry, as given by -color=name=#hex.
type ColorOverride struct {
	Name string
	Hex  string
}

// Defaults returns the options used when nothing is specified.
func Defaults() *Options {
	p := pipeline.DefaultConfig()
	return &Options{
		WidthMM:       100,
		ShowFeatures:  true,
		ShowTemplates: true,
		ShowBins:      true,
		LogLevel:      logrus.InfoLevel,
		MaxLevel:      p.MaxLevel,
		TemplateWidth: p.Selection.TemplateWidth,
		BinCount:      p.Selection.BinCount,
		Detector:      p.Features.Type,
		RansacThresh:  2.5,
		Window:        geometry.Size{Width: 1280, Height: 720},
		FeatureLimit:  p.Features.MaxFeatures,
		FeatureThresh: p.Features.Threshold,
	}
}

// Parse reads args (without the program name). The environment supplies the
// log level unless -loglevel is given.
func Parse(args []string) (*Options, error) {
	opts := Defaults()
	if env := os.Getenv(EnvLogLevel); env != "" {
		lvl, err := parseLogLevel(env)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
		opts.LogLevel = lvl
	}

	var positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]

		// Two-part options first.
		if i+1 < len(args) {
			switch arg {
			case "--vconf":
				i++
				opts.VideoConfig = args[i]
				continue
			case "--cpara":
				i++
				opts.CameraParams = args[i]
				continue
			}
		}

		switch arg {
		case "--help", "-help", "-h":
			return nil, ErrHelp
		case "--version", "-version", "-v":
			return nil, ErrVersion
		case "--vconf", "--cpara":
			return nil, fmt.Errorf("option %s needs a value", arg)
		case "-features":
			opts.ShowFeatures = true
		case "-nofeatures":
			opts.ShowFeatures = false
		case "-templates":
			opts.ShowTemplates = true
		case "-notemplates":
			opts.ShowTemplates = false
		case "-bins":
			opts.ShowBins = true
		case "-nobins":
			opts.ShowBins = false
		default:
			if key, value, ok := splitOption(arg); ok {
				if err := opts.set(key, value); err != nil {
					return nil, err
				}
				continue
			}
			positional = append(positional, arg)
		}
	}

	if len(positional) == 0 {
		return nil, fmt.Errorf("missing reference image path")
	}
	if len(positional) > 2 {
		return nil, fmt.Errorf("unexpected argument %q", positional[2])
	}
	opts.ImagePath = positional[0]
	if len(positional) == 2 {
		w, err := strconv.ParseFloat(positional[1], 64)
		if err != nil || w <= 0 {
			return nil, fmt.Errorf("invalid width %q: must be a positive number of millimetres", positional[1])
		}
		opts.WidthMM = w
	}

	return opts, nil
}

// splitOption recognises "-key=value".
func splitOption(arg string) (key, value string, ok bool) {
	if !strings.HasPrefix(arg, "-") {
		return "", "", false
	}
	key, value, ok = strings.Cut(strings.TrimLeft(arg, "-"), "=")
	return key, value, ok
}

func (o *Options) set(key, value string) error {
	var err error
	switch key {
	case "loglevel":
		o.LogLevel, err = parseLogLevel(value)
	case "maxlevel":
		o.MaxLevel, err = parseInt(key, value, 0)
	case "template":
		o.TemplateWidth, err = parseInt(key, value, 1)
	case "bingrid":
		o.BinCount, err = parseInt(key, value, 1)
	case "maxfeatures":
		o.FeatureLimit, err = parseInt(key, value, 0)
	case "threshold":
		o.FeatureThresh, err = parseInt(key, value, 1)
	case "detector":
		o.Detector, err = detection.ParseDetectorType(value)
	case "ransac":
		o.RansacThresh, err = strconv.ParseFloat(value, 64)
		if err != nil || o.RansacThresh < 0 {
			err = fmt.Errorf("invalid -ransac value %q", value)
		}
	case "window":
		o.Window, err = parseSize(value)
	case "snapshot":
		if value == "" {
			err = fmt.Errorf("-snapshot needs a file name")
		}
		o.SnapshotPath = value
	case "color":
		name, hex, ok := strings.Cut(value, "=")
		if !ok {
			return fmt.Errorf("invalid -color value %q, want name=#rrggbb", value)
		}
		p := overlay.DefaultPalette()
		if err := p.Set(name, hex); err != nil {
			return fmt.Errorf("invalid -color value: %w", err)
		}
		o.Colors = append(o.Colors, ColorOverride{Name: name, Hex: hex})
	default:
		return fmt.Errorf("unknown option -%s", key)
	}
	return err
}

func parseInt(key, value string, min int) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < min {
		return 0, fmt.Errorf("invalid -%s value %q: must be an integer >= %d", key, value, min)
	}
	return n, nil
}

// parseLogLevel accepts DEBUG, INFO, WARN and ERROR in any case.
func parseLogLevel(s string) (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(s)
	if err == nil {
		switch lvl {
		case logrus.DebugLevel, logrus.InfoLevel, logrus.WarnLevel, logrus.ErrorLevel:
			return lvl, nil
		}
	}
	return 0, fmt.Errorf("invalid log level %q: use DEBUG, INFO, WARN or ERROR", s)
}

// parseSize parses "WxH".
func parseSize(s string) (geometry.Size, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if ok {
		w, errW := strconv.Atoi(ws)
		h, errH := strconv.Atoi(hs)
		if errW == nil && errH == nil && w > 0 && h > 0 {
			return geometry.Size{Width: w, Height: h}, nil
		}
	}
	return geometry.Size{}, fmt.Errorf("%w: window size %q, want WxH", geometry.ErrInvalidConfiguration, s)
}

// MarkerConfig returns the tracker's trackable description for the reference.
func (o *Options) MarkerConfig() string {
	return fmt.Sprintf("2d;%s;%f", o.ImagePath, o.WidthMM)
}

// Palette returns the default overlay palette with the -color overrides
// applied.
func (o *Options) Palette() (overlay.Palette, error) {
	p := overlay.DefaultPalette()
	for _, c := range o.Colors {
		if err := p.Set(c.Name, c.Hex); err != nil {
			return p, err
		}
	}
	return p, nil
}

// PipelineConfig converts the options into a construction config.
func (o *Options) PipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.MaxLevel = o.MaxLevel
	cfg.Selection.TemplateWidth = o.TemplateWidth
	cfg.Selection.BinCount = o.BinCount
	cfg.Features.Type = o.Detector
	cfg.Features.MaxFeatures = o.FeatureLimit
	cfg.Features.Threshold = o.FeatureThresh
	cfg.DetectTemplates = o.ShowTemplates
	cfg.DetectFeatures = o.ShowFeatures
	return cfg
}

// Usage is the help text printed for -h.
func Usage(program string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage: %s [options] <filename> [<width in millimetres>]\n\n", program)
	b.WriteString("Where <filename> is path to a JPEG, PNG or GIF file,\n")
	b.WriteString("   and <width> is width of the physical printed image in millimetres.\n\n")
	b.WriteString("Options:\n")
	b.WriteString("  --vconf <video parameter for the camera>\n")
	b.WriteString("  --cpara <camera parameter file for the camera>\n")
	b.WriteString("  -[no]features     Show [or don't show] tracking features.\n")
	b.WriteString("  -[no]templates    Show [or don't show] tracking templates.\n")
	b.WriteString("  -[no]bins         Show [or don't show] tracking bins.\n")
	b.WriteString("  -maxlevel=N       Coarsest pyramid level (default 2).\n")
	b.WriteString("  -template=N       Template width in pixels (default 15).\n")
	b.WriteString("  -bingrid=N        Bin divisions per axis (default 10).\n")
	b.WriteString("  -detector=D       Feature detector: fast or harris (default fast).\n")
	b.WriteString("  -maxfeatures=N    Keep at most N features, 0 for all (default 500).\n")
	b.WriteString("  -threshold=N      FAST intensity threshold (default 20).\n")
	b.WriteString("  -ransac=F         Initial RANSAC threshold (default 2.5).\n")
	b.WriteString("  -window=WxH       Window size (default 1280x720).\n")
	b.WriteString("  -snapshot=FILE    Render one frame to a PNG file and exit.\n")
	b.WriteString("  -color=NAME=#HEX  Override an overlay colour: template, bin, feature, bounds,\n")
	b.WriteString("                    flow, template-match, feature-match or text.\n")
	b.WriteString("  -loglevel=l       Set the log level to l, where l is one of DEBUG INFO WARN ERROR.\n")
	b.WriteString("  --version         Print version and exit.\n")
	b.WriteString("  -h -help --help   Show this message.\n\n")
	b.WriteString("Environment variables:\n")
	fmt.Fprintf(&b, "  %s=DEBUG    Default log level\n\n", EnvLogLevel)
	b.WriteString("Without -snapshot, events are read as JSON lines on stdin and\n")
	b.WriteString("responses written to stdout.\n")
	return b.String()
}
