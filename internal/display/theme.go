package display

import "github.com/kungfusheep/shellline/internal/syntax"

// Theme maps syntax.Kind regions to render styles, adapted from
// kungfusheep/glyph's theme.go Theme/ThemeDark/ThemeLight pattern. The
// color database proper (named themes, user config) is an external
// collaborator per spec.md §1; a Theme value is what that collaborator
// hands the display model.
type Theme struct {
	Normal  Style
	Keyword Style
	Command Style
	String  Style
	Comment Style
	Number  Style
	Operator Style
	Variable Style
	Path    Style
	Error   Style
}

// ThemeDark is the default dark-background palette.
var ThemeDark = Theme{
	Normal:   Style{FG: DefaultColor()},
	Keyword:  Style{FG: Basic16(5), Attr: AttrBold}, // magenta
	Command:  Style{FG: Basic16(6)},                 // cyan
	String:   Style{FG: Basic16(2)},                 // green
	Comment:  Style{FG: Basic16(8), Attr: AttrDim},  // bright black
	Number:   Style{FG: Basic16(3)},                 // yellow
	Operator: Style{FG: Basic16(7)},
	Variable: Style{FG: Basic16(4)}, // blue
	Path:     Style{FG: Basic16(6), Attr: AttrUnderline},
	Error:    Style{FG: Basic16(1), Attr: AttrBold}, // red
}

// ThemeMonochrome uses only attributes, for ColorNone capability.
var ThemeMonochrome = Theme{
	Normal:   Style{},
	Keyword:  Style{Attr: AttrBold},
	Command:  Style{Attr: AttrBold},
	String:   Style{Attr: AttrItalic},
	Comment:  Style{Attr: AttrDim},
	Number:   Style{},
	Operator: Style{},
	Variable: Style{Attr: AttrUnderline},
	Path:     Style{Attr: AttrUnderline},
	Error:    Style{Attr: AttrInverse},
}

// StyleFor returns the style the theme assigns to a classified region.
func (t Theme) StyleFor(k syntax.Kind) Style {
	switch k {
	case syntax.Keyword:
		return t.Keyword
	case syntax.Command:
		return t.Command
	case syntax.String:
		return t.String
	case syntax.Comment:
		return t.Comment
	case syntax.Number:
		return t.Number
	case syntax.Operator:
		return t.Operator
	case syntax.Variable:
		return t.Variable
	case syntax.Path:
		return t.Path
	case syntax.Error:
		return t.Error
	default:
		return t.Normal
	}
}
