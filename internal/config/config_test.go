package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/trackviz/internal/detection"
	"github.com/ironsheep/trackviz/internal/geometry"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv(EnvLogLevel, "")

	opts, err := Parse([]string{"marker.jpg"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if opts.ImagePath != "marker.jpg" || opts.WidthMM != 100 {
		t.Errorf("positional: got %q %v", opts.ImagePath, opts.WidthMM)
	}
	if !opts.ShowFeatures || !opts.ShowTemplates || !opts.ShowBins {
		t.Error("every display toggle should default to on")
	}
	if opts.MaxLevel != 2 || opts.TemplateWidth != 15 || opts.BinCount != 10 {
		t.Errorf("pipeline defaults: got level %d template %d bins %d", opts.MaxLevel, opts.TemplateWidth, opts.BinCount)
	}
	if opts.RansacThresh != 2.5 || opts.Window != (geometry.Size{Width: 1280, Height: 720}) {
		t.Errorf("view defaults: got ransac %v window %v", opts.RansacThresh, opts.Window)
	}
	if opts.LogLevel != logrus.InfoLevel {
		t.Errorf("log level: got %v", opts.LogLevel)
	}
}

func TestParse_Options(t *testing.T) {
	t.Setenv(EnvLogLevel, "")

	args := []string{
		"--vconf", "-module=Dummy",
		"-nofeatures", "-nobins", "-templates",
		"--cpara", "camera_para.dat",
		"-loglevel=DEBUG",
		"-maxlevel=3", "-template=21", "-bingrid=8",
		"-detector=harris", "-maxfeatures=0", "-threshold=30",
		"-ransac=4", "-window=640x480", "-snapshot=out.png",
		"pinball.jpg", "188.5",
	}
	opts, err := Parse(args)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if opts.VideoConfig != "-module=Dummy" || opts.CameraParams != "camera_para.dat" {
		t.Errorf("two-part options: got %q %q", opts.VideoConfig, opts.CameraParams)
	}
	if opts.ShowFeatures || opts.ShowBins || !opts.ShowTemplates {
		t.Errorf("toggles: features %v bins %v templates %v", opts.ShowFeatures, opts.ShowBins, opts.ShowTemplates)
	}
	if opts.LogLevel != logrus.DebugLevel {
		t.Errorf("log level: got %v", opts.LogLevel)
	}
	if opts.MaxLevel != 3 || opts.TemplateWidth != 21 || opts.BinCount != 8 {
		t.Errorf("pipeline options: got %d %d %d", opts.MaxLevel, opts.TemplateWidth, opts.BinCount)
	}
	if opts.Detector != detection.DetectorHarris || opts.FeatureLimit != 0 || opts.FeatureThresh != 30 {
		t.Errorf("detector options: got %v %d %d", opts.Detector, opts.FeatureLimit, opts.FeatureThresh)
	}
	if opts.RansacThresh != 4 || opts.Window != (geometry.Size{Width: 640, Height: 480}) || opts.SnapshotPath != "out.png" {
		t.Errorf("view options: got %v %v %q", opts.RansacThresh, opts.Window, opts.SnapshotPath)
	}
	if opts.ImagePath != "pinball.jpg" || opts.WidthMM != 188.5 {
		t.Errorf("positional: got %q %v", opts.ImagePath, opts.WidthMM)
	}

	cfg := opts.PipelineConfig()
	if cfg.MaxLevel != 3 || cfg.Selection.TemplateWidth != 21 || cfg.Selection.BinCount != 8 {
		t.Errorf("PipelineConfig: got %+v", cfg)
	}
	if cfg.DetectFeatures || !cfg.DetectTemplates {
		t.Error("PipelineConfig should skip disabled stages")
	}
	if cfg.Features.Type != detection.DetectorHarris {
		t.Errorf("PipelineConfig detector: got %v", cfg.Features.Type)
	}
}

func TestParse_HelpAndVersion(t *testing.T) {
	t.Setenv(EnvLogLevel, "")

	tests := []struct {
		arg  string
		want error
	}{
		{"--help", ErrHelp},
		{"-help", ErrHelp},
		{"-h", ErrHelp},
		{"--version", ErrVersion},
		{"-v", ErrVersion},
	}
	for _, tt := range tests {
		if _, err := Parse([]string{"marker.jpg", tt.arg}); !errors.Is(err, tt.want) {
			t.Errorf("Parse(%q): got %v, want %v", tt.arg, err, tt.want)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	t.Setenv(EnvLogLevel, "")

	tests := []struct {
		name string
		args []string
	}{
		{"no image", []string{"-nobins"}},
		{"extra positional", []string{"a.jpg", "100", "extra"}},
		{"bad width", []string{"a.jpg", "wide"}},
		{"zero width", []string{"a.jpg", "0"}},
		{"bad log level", []string{"a.jpg", "-loglevel=LOUD"}},
		{"unsupported log level", []string{"a.jpg", "-loglevel=trace"}},
		{"fatal log level", []string{"a.jpg", "-loglevel=FATAL"}},
		{"colour without name", []string{"a.jpg", "-color=#ff0000"}},
		{"unknown colour name", []string{"a.jpg", "-color=sky=#ff0000"}},
		{"bad colour value", []string{"a.jpg", "-color=text=blue"}},
		{"unknown option", []string{"a.jpg", "-colour=red"}},
		{"zero template", []string{"a.jpg", "-template=0"}},
		{"negative level", []string{"a.jpg", "-maxlevel=-1"}},
		{"bad detector", []string{"a.jpg", "-detector=sift"}},
		{"bad window", []string{"a.jpg", "-window=640"}},
		{"negative ransac", []string{"a.jpg", "-ransac=-1"}},
		{"empty snapshot", []string{"a.jpg", "-snapshot="}},
		{"dangling vconf", []string{"a.jpg", "--vconf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.args); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParse_EnvLogLevel(t *testing.T) {
	t.Setenv(EnvLogLevel, "warn")

	opts, err := Parse([]string{"a.jpg"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if opts.LogLevel != logrus.WarnLevel {
		t.Errorf("env level: got %v, want warn", opts.LogLevel)
	}

	opts, err = Parse([]string{"a.jpg", "-loglevel=ERROR"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if opts.LogLevel != logrus.ErrorLevel {
		t.Errorf("flag should win over env: got %v", opts.LogLevel)
	}

	t.Setenv(EnvLogLevel, "chatty")
	if _, err := Parse([]string{"a.jpg"}); err == nil {
		t.Error("invalid env level should be rejected")
	}
}

func TestParse_LogLevelNames(t *testing.T) {
	t.Setenv(EnvLogLevel, "")

	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"INFO", logrus.InfoLevel},
		{"Warn", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"ERROR", logrus.ErrorLevel},
	}
	for _, tt := range tests {
		opts, err := Parse([]string{"a.jpg", "-loglevel=" + tt.in})
		if err != nil {
			t.Errorf("-loglevel=%s: unexpected error %v", tt.in, err)
			continue
		}
		if opts.LogLevel != tt.want {
			t.Errorf("-loglevel=%s: got %v, want %v", tt.in, opts.LogLevel, tt.want)
		}
	}
}

func TestParse_Colors(t *testing.T) {
	t.Setenv(EnvLogLevel, "")

	opts, err := Parse([]string{"a.jpg", "-color=template=#ff0000", "-color=text=#00f", "-color=template=#00ff00"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(opts.Colors) != 3 {
		t.Fatalf("overrides: got %v", opts.Colors)
	}

	p, err := opts.Palette()
	if err != nil {
		t.Fatalf("Palette failed: %v", err)
	}
	if got := p.TemplateBox.Hex(); got != "#00ff00" {
		t.Errorf("template colour: got %s, want the last override #00ff00", got)
	}
	if got := p.Text.Hex(); got != "#0000ff" {
		t.Errorf("text colour: got %s, want #0000ff", got)
	}
	if got := p.BinLine.Hex(); got != "#0000ff" {
		t.Errorf("untouched bin colour: got %s", got)
	}
}

func TestMarkerConfig(t *testing.T) {
	opts := &Options{ImagePath: "/data/pinball.jpg", WidthMM: 188.5}
	if got, want := opts.MarkerConfig(), "2d;/data/pinball.jpg;188.500000"; got != want {
		t.Errorf("MarkerConfig: got %q, want %q", got, want)
	}
}

func TestUsage(t *testing.T) {
	u := Usage("trackviz")
	for _, want := range []string{"Usage: trackviz", "-[no]bins", "-snapshot=FILE", EnvLogLevel} {
		if !strings.Contains(u, want) {
			t.Errorf("usage text missing %q", want)
		}
	}
}
