package ui

import (
	"fmt"

	"github.com/mattn/go-runewidth"

	"github.com/idilsaglam/simpletodo/internal/model"
)

const maxTextWidth = 80

// Header is the title line with counts followed by the progress bar.
func Header(items []model.Todo) []string {
	t := Current()
	d, a := model.Stats(items)
	title := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		C(t.Title, "Simple To Do"),
		C(t.Success, t.SymDone), d,
		C(t.Pending, t.SymActive), a,
		C(t.Accent, "Total"), len(items),
	)
	return []string{title, C(t.Muted, ProgressBar(d, d+a, 28))}
}

// FlatLines renders one line per item in the given order.
func FlatLines(items []model.Todo) []string {
	t := Current()
	if len(items) == 0 {
		return []string{C(t.Muted, "no items")}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		box, color := t.BoxUnchecked, t.Muted
		if it.Done {
			box, color = t.BoxChecked, t.Success
		}
		out = append(out, fmt.Sprintf("%s %s %s",
			C(dim, fmt.Sprintf("#%-3d", it.ID)), C(color, box),
			runewidth.Truncate(it.Todo, maxTextWidth, "...")))
	}
	return out
}

// SectionLines renders the Active section followed by the Done section.
func SectionLines(items []model.Todo) []string {
	t := Current()
	active, done := model.Partition(items)
	section := func(title string, items []model.Todo) []string {
		lines := []string{C(t.Accent, fmt.Sprintf("%s (%d)", title, len(items)))}
		if len(items) == 0 {
			return append(lines, C(t.Muted, "(none)"))
		}
		return append(lines, FlatLines(items)...)
	}
	lines := section("Active", active)
	lines = append(lines, "")
	return append(lines, section("Done", done)...)
}
