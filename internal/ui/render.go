package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/Makepad-fr/focusflow/internal/model"
)

const (
	createdLayout = "Jan 2 15:04"
	maxTitleWidth = 80
)

func OK(w io.Writer, msg string)   { fmt.Fprintln(w, current.Success.Render(current.SymDone+" "+msg)) }
func Fail(w io.Writer, msg string) { fmt.Fprintln(w, current.Error.Render("✖ "+msg)) }
func Hint(w io.Writer, msg string) { fmt.Fprintln(w, current.Muted.Render(msg)) }

// Panel frames lines with the current theme's border.
func Panel(lines []string) string {
	return current.Box().Render(strings.Join(lines, "\n"))
}

// ProgressBar renders a bar with percentage; total 0 draws an empty bar.
func ProgressBar(done, total, width int) string {
	if width < 5 {
		width = 5
	}
	pct := 0
	filled := 0
	if total > 0 {
		filled = done * width / total
		pct = done * 100 / total
	}
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s %3d%%", bar, pct)
}

// Header is the counts line: title, done, active, total.
func Header(title string, total, done, active int) string {
	t := current
	return fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		t.Title.Render(title),
		t.Success.Render(t.SymDone), done,
		t.Pending.Render(t.SymPending), active,
		t.Accent.Render("Total"), total,
	)
}

// Checkbox returns the themed box for done.
func Checkbox(done bool) string {
	if done {
		return current.Success.Render(current.BoxChecked)
	}
	return current.Muted.Render(current.BoxUnchecked)
}

// RecordLine renders " 1. ☐ title  Jan 2 15:04" for the 1-based position n.
func RecordLine(n int, r model.Record) string {
	t := current
	title := Truncate(r.Title, maxTitleWidth)
	if r.Done {
		title = t.Done.Render(title)
	}
	return fmt.Sprintf("%s %s %s  %s",
		t.Muted.Render(fmt.Sprintf("%2d.", n)),
		Checkbox(r.Done),
		title,
		t.Muted.Render(FormatCreated(r)))
}

// NotesLine is the indented notes row under a record.
func NotesLine(r model.Record) string {
	return "       " + current.Muted.Render(NotesText(r.Notes))
}

func FormatCreated(r model.Record) string {
	return r.Created().Format(createdLayout)
}

func NotesText(notes string) string {
	if strings.TrimSpace(notes) == "" {
		return "no notes"
	}
	return notes
}

// EmptyMessage is shown when the visible list is empty.
func EmptyMessage(hideDone bool) string {
	if hideDone {
		return "no active records"
	}
	return "no records yet, add one"
}

// Truncate shortens s to at most n runes, ending in "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
