package overlay

import (
	"fmt"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Palette holds the colour of every overlay category.
type Palette struct {
	TemplateBox    colorful.Color
	BinLine        colorful.Color
	FeatureCross   colorful.Color
	Bounds         colorful.Color
	OpticalFlow    colorful.Color
	TemplateMatch  colorful.Color
	FeatureMatch   colorful.Color
	Text           colorful.Color
	TextBackground colorful.Color
	// TextAlpha is the opacity of the background behind help and mode text.
	TextAlpha float64
}

// DefaultPalette returns the standard overlay colours.
func DefaultPalette() Palette {
	return Palette{
		TemplateBox:    mustHex("#800000"),
		BinLine:        mustHex("#0000ff"),
		FeatureCross:   mustHex("#008000"),
		Bounds:         mustHex("#808000"),
		OpticalFlow:    mustHex("#ff8000"),
		TemplateMatch:  mustHex("#8000ff"),
		FeatureMatch:   mustHex("#00ff00"),
		Text:           mustHex("#ffffff"),
		TextBackground: mustHex("#000000"),
		TextAlpha:      0.5,
	}
}

// Set replaces the named colour with a hex value ("#rrggbb" or "#rgb").
func (p *Palette) Set(name, hex string) error {
	c, err := colorful.Hex(hex)
	if err != nil {
		return fmt.Errorf("invalid colour %q for %s: %w", hex, name, err)
	}
	switch name {
	case "template":
		p.TemplateBox = c
	case "bin":
		p.BinLine = c
	case "feature":
		p.FeatureCross = c
	case "bounds":
		p.Bounds = c
	case "flow":
		p.OpticalFlow = c
	case "template-match":
		p.TemplateMatch = c
	case "feature-match":
		p.FeatureMatch = c
	case "text":
		p.Text = c
	default:
		return fmt.Errorf("unknown palette entry %q", name)
	}
	return nil
}

// translucent returns c with the given opacity as a non-premultiplied colour.
func translucent(c colorful.Color, alpha float64) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(alpha*255 + 0.5)}
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}
