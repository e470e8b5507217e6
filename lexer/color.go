package lexer

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// Style describes how one token class is rendered.
type Style struct {
	Fg    string   `yaml:"fg"`
	Bg    string   `yaml:"bg,omitempty"`
	Attrs []string `yaml:"attrs,omitempty"`
}

// ColorScheme assigns a style to every highlight class. Schemes load
// from YAML so users can restyle the REPL and disassembler without
// rebuilding.
type ColorScheme struct {
	Number     Style `yaml:"number"`
	String     Style `yaml:"string"`
	Identifier Style `yaml:"identifier"`
	Point      Style `yaml:"point"`
	Op         Style `yaml:"op"`
	Comment    Style `yaml:"comment"`
	Err        Style `yaml:"err"`
}

// DefaultColorScheme mirrors the toolchain's stock palette.
func DefaultColorScheme() ColorScheme {
	return ColorScheme{
		Number:     Style{Fg: "blue"},
		String:     Style{Fg: "green"},
		Identifier: Style{Fg: "cyan"},
		Point:      Style{Fg: "yellow"},
		Op:         Style{Fg: "magenta"},
		Comment:    Style{Fg: "white", Attrs: []string{"dim"}},
		Err:        Style{Fg: "red"},
	}
}

// LoadColorScheme reads a scheme from a YAML file. Missing classes
// keep their defaults.
func LoadColorScheme(path string) (ColorScheme, error) {
	scheme := DefaultColorScheme()
	raw, err := os.ReadFile(path)
	if err != nil {
		return scheme, err
	}
	if err := yaml.Unmarshal(raw, &scheme); err != nil {
		return DefaultColorScheme(), err
	}
	return scheme, nil
}

var fgColors = map[string]color.Attribute{
	"black":   color.FgBlack,
	"red":     color.FgRed,
	"green":   color.FgGreen,
	"yellow":  color.FgYellow,
	"blue":    color.FgBlue,
	"magenta": color.FgMagenta,
	"cyan":    color.FgCyan,
	"white":   color.FgWhite,
}

var bgColors = map[string]color.Attribute{
	"black":   color.BgBlack,
	"red":     color.BgRed,
	"green":   color.BgGreen,
	"yellow":  color.BgYellow,
	"blue":    color.BgBlue,
	"magenta": color.BgMagenta,
	"cyan":    color.BgCyan,
	"white":   color.BgWhite,
}

var attrNames = map[string]color.Attribute{
	"bold":      color.Bold,
	"dim":       color.Faint,
	"italic":    color.Italic,
	"underline": color.Underline,
	"blink":     color.BlinkSlow,
	"invert":    color.ReverseVideo,
	"conceal":   color.Concealed,
	"strike":    color.CrossedOut,
}

func (s Style) build() (*color.Color, error) {
	attrs := make([]color.Attribute, 0, 2+len(s.Attrs))
	if s.Fg != "" {
		fg, ok := fgColors[strings.ToLower(s.Fg)]
		if !ok {
			return nil, fmt.Errorf("invalid color %q", s.Fg)
		}
		attrs = append(attrs, fg)
	}
	if s.Bg != "" {
		bg, ok := bgColors[strings.ToLower(s.Bg)]
		if !ok {
			return nil, fmt.Errorf("invalid color %q", s.Bg)
		}
		attrs = append(attrs, bg)
	}
	for _, a := range s.Attrs {
		attr, ok := attrNames[strings.ToLower(a)]
		if !ok {
			return nil, fmt.Errorf("invalid attribute %q", a)
		}
		attrs = append(attrs, attr)
	}
	return color.New(attrs...), nil
}

// styleFor picks the style of a highlight class.
func (cs ColorScheme) styleFor(class Class) Style {
	switch class {
	case ClassNumber:
		return cs.Number
	case ClassString:
		return cs.String
	case ClassIdent:
		return cs.Identifier
	case ClassPoint:
		return cs.Point
	case ClassComment:
		return cs.Comment
	case ClassErr:
		return cs.Err
	}
	return cs.Op
}

// Highlight renders source text with the scheme, preserving all
// whitespace. Unknown style entries fall back to plain text.
func (cs ColorScheme) Highlight(src string) string {
	var out strings.Builder
	last := 0
	for _, tok := range Tokenize(src) {
		out.WriteString(src[last:tok.Position.Start])
		text := src[tok.Position.Start:tok.Position.End]
		if c, err := cs.styleFor(tok.Class()).build(); err == nil {
			out.WriteString(c.Sprint(text))
		} else {
			out.WriteString(text)
		}
		last = tok.Position.End
	}
	out.WriteString(src[last:])
	return out.String()
}
