package display

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// CompletionMenu renders the bordered, multi-column completion
// candidate list spec.md §4.10 describes ("a multi-column layout if
// shown") for the ≥2-candidate Tab-cycling overlay. The primary
// prompt/buffer render path never uses lipgloss — only this
// non-normative decoration does, per SPEC_FULL.md §3.
type CompletionMenu struct {
	box       lipgloss.Style
	cell      lipgloss.Style
	highlight lipgloss.Style
}

// NewCompletionMenu builds a menu renderer with the teacher's rounded
// border treatment.
func NewCompletionMenu() CompletionMenu {
	return CompletionMenu{
		box:       lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		cell:      lipgloss.NewStyle(),
		highlight: lipgloss.NewStyle().Reverse(true),
	}
}

// Render lays candidates out in as many equal-width columns as fit
// within width, highlights the selected index, and returns the box as
// \r\n-terminated bytes ready to write under raw mode.
func (m CompletionMenu) Render(items []string, selected, width int) []byte {
	if len(items) == 0 {
		return nil
	}

	colWidth := 0
	for _, it := range items {
		if w := lipgloss.Width(it); w > colWidth {
			colWidth = w
		}
	}
	colWidth += 2

	inner := width - 4 // border + padding
	cols := 1
	if colWidth > 0 && inner > colWidth {
		cols = inner / colWidth
	}
	if cols < 1 {
		cols = 1
	}

	var rows []string
	for i := 0; i < len(items); i += cols {
		end := i + cols
		if end > len(items) {
			end = len(items)
		}
		cells := make([]string, 0, end-i)
		for j := i; j < end; j++ {
			style := m.cell
			if j == selected {
				style = m.highlight
			}
			cells = append(cells, style.Width(colWidth).Render(items[j]))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	boxed := m.box.Render(strings.Join(rows, "\n"))
	return []byte(strings.ReplaceAll(boxed, "\n", "\r\n"))
}
