package display

// Attribute represents text styling attributes that can be combined,
// adapted from kungfusheep/glyph's tui.go Attribute bitset.
type Attribute uint8

const (
	AttrNone Attribute = 0
	AttrBold Attribute = 1 << iota
	AttrDim
	AttrItalic
	AttrUnderline
	AttrInverse
)

// Has reports whether the attribute set contains attr.
func (a Attribute) Has(attr Attribute) bool { return a&attr != 0 }

// ColorMode selects how a Color's bytes are interpreted.
type ColorMode uint8

const (
	ColorDefault ColorMode = iota
	Color16
	Color256
	ColorRGB
)

// Color is a terminal color in one of the four supported modes.
type Color struct {
	Mode    ColorMode
	R, G, B uint8
	Index   uint8
}

// DefaultColor returns the terminal's default (unset) color.
func DefaultColor() Color { return Color{Mode: ColorDefault} }

// Basic16 returns one of the 16 basic terminal colors (0-15).
func Basic16(index uint8) Color { return Color{Mode: Color16, Index: index} }

// Palette256 returns one of the 256 palette colors.
func Palette256(index uint8) Color { return Color{Mode: Color256, Index: index} }

// RGB returns a 24-bit truecolor value.
func RGB(r, g, b uint8) Color { return Color{Mode: ColorRGB, R: r, G: g, B: b} }

// Style is a foreground/background/attribute triple applied to a cell
// or a run of classified text.
type Style struct {
	FG   Color
	BG   Color
	Attr Attribute
}

// Equal reports whether two styles render identically, used by the
// display model's color-state minimization (spec.md §4.8).
func (s Style) Equal(o Style) bool {
	return s.FG == o.FG && s.BG == o.BG && s.Attr == o.Attr
}
