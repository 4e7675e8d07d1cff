// Package diff computes line-level change statistics for old/new file
// content pairs and renders unified and side-by-side previews. It is a
// reporting layer only; nothing here feeds back into planning or
// execution decisions.
package diff

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
)

var (
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
	cyan  = color.New(color.FgCyan)
	dim   = color.New(color.Faint)
	bold  = color.New(color.Bold)
)

// FileDiff holds one file's old and new content along with line
// counts. Construction never mutates the underlying file.
type FileDiff struct {
	Path       string
	OldContent string
	NewContent string
	Insertions int
	Deletions  int
}

// NewFileDiff computes line-level insertion and deletion counts for a
// content pair.
func NewFileDiff(path, oldContent, newContent string) FileDiff {
	d := FileDiff{
		Path:       path,
		OldContent: oldContent,
		NewContent: newContent,
	}

	matcher := difflib.NewMatcher(splitLines(oldContent), splitLines(newContent))
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'r':
			d.Deletions += op.I2 - op.I1
			d.Insertions += op.J2 - op.J1
		case 'd':
			d.Deletions += op.I2 - op.I1
		case 'i':
			d.Insertions += op.J2 - op.J1
		}
	}
	return d
}

// HasChanges reports whether the content pair differs at all.
func (d FileDiff) HasChanges() bool {
	return d.Insertions > 0 || d.Deletions > 0
}

// Unified renders a classic unified patch (---/+++ headers, @@ hunks)
// with added lines in green and removed lines in red.
func (d FileDiff) Unified() string {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(d.OldContent),
		B:        splitLines(d.NewContent),
		FromFile: d.Path,
		ToFile:   d.Path,
		Context:  3,
	})
	if err != nil {
		return ""
	}

	var b strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			b.WriteString(dim.Sprint(line))
		case strings.HasPrefix(line, "@@"):
			b.WriteString(cyan.Sprint(line))
		case strings.HasPrefix(line, "+"):
			b.WriteString(green.Sprint(line))
		case strings.HasPrefix(line, "-"):
			b.WriteString(red.Sprint(line))
		default:
			b.WriteString(line)
		}
	}
	return b.String()
}

// SideBySide renders changed lines in two aligned columns, old on the
// left and new on the right, truncated to fit the given total width.
func (d FileDiff) SideBySide(width int) string {
	if width < 24 {
		width = 24
	}
	colWidth := width/2 - 2

	var b strings.Builder
	fmt.Fprintf(&b, "%s | %s\n", bold.Sprintf("%-*s", colWidth, "OLD"), bold.Sprint("NEW"))
	b.WriteString(strings.Repeat("=", width) + "\n")

	oldLines := splitLines(d.OldContent)
	newLines := splitLines(d.NewContent)
	matcher := difflib.NewMatcher(oldLines, newLines)

	for idx, group := range matcher.GetGroupedOpCodes(0) {
		if idx > 0 {
			b.WriteString(dim.Sprint(strings.Repeat("-", width)) + "\n")
		}

		for _, op := range group {
			switch op.Tag {
			case 'e':
				for i := op.I1; i < op.I2; i++ {
					cell := fitColumn(oldLines[i], colWidth)
					fmt.Fprintf(&b, "%s | %s\n", dim.Sprint(cell), dim.Sprint(cell))
				}
			case 'd', 'r':
				for i := op.I1; i < op.I2; i++ {
					fmt.Fprintf(&b, "%s | \n", red.Sprint(fitColumn(oldLines[i], colWidth)))
				}
				if op.Tag == 'r' {
					for j := op.J1; j < op.J2; j++ {
						fmt.Fprintf(&b, "%*s | %s\n", colWidth, "", green.Sprint(fitColumn(newLines[j], colWidth)))
					}
				}
			case 'i':
				for j := op.J1; j < op.J2; j++ {
					fmt.Fprintf(&b, "%*s | %s\n", colWidth, "", green.Sprint(fitColumn(newLines[j], colWidth)))
				}
			}
		}
	}
	return b.String()
}

// Summary renders the one-line "path +N -M" form.
func (d FileDiff) Summary() string {
	if !d.HasChanges() {
		return fmt.Sprintf("%s (no changes)", dim.Sprint(d.Path))
	}
	return fmt.Sprintf("%s %s %s",
		bold.Sprint(d.Path),
		green.Sprintf("+%d", d.Insertions),
		red.Sprintf("-%d", d.Deletions))
}

// fitColumn pads or truncates a line to exactly width characters.
func fitColumn(line string, width int) string {
	line = strings.TrimRight(line, " \r\n")
	if len(line) > width {
		return line[:width-3] + "..."
	}
	return fmt.Sprintf("%-*s", width, line)
}

// splitLines splits content into lines, keeping newline characters.
// Empty content yields no lines, so a brand-new file diffs as pure
// insertions.
func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Set aggregates the FileDiffs produced by one migration run.
type Set struct {
	Diffs []FileDiff
}

// Add appends a diff to the set.
func (s *Set) Add(d FileDiff) {
	s.Diffs = append(s.Diffs, d)
}

// TotalFiles returns the number of diffs in the set.
func (s *Set) TotalFiles() int {
	return len(s.Diffs)
}

// TotalInsertions sums inserted lines over all diffs.
func (s *Set) TotalInsertions() int {
	total := 0
	for _, d := range s.Diffs {
		total += d.Insertions
	}
	return total
}

// TotalDeletions sums deleted lines over all diffs.
func (s *Set) TotalDeletions() int {
	total := 0
	for _, d := range s.Diffs {
		total += d.Deletions
	}
	return total
}

// WriteSummary writes the per-file summaries and a closing total in
// the familiar "N file(s) changed" form.
func (s *Set) WriteSummary(w io.Writer) {
	if len(s.Diffs) == 0 {
		fmt.Fprintln(w, dim.Sprint("No changes"))
		return
	}

	fmt.Fprintf(w, "\n%s\n", bold.Sprint("Files changed:"))
	for _, d := range s.Diffs {
		fmt.Fprintf(w, "  %s\n", d.Summary())
	}

	fmt.Fprintf(w, "\n%s file(s) changed, %s insertions(+), %s deletions(-)\n",
		bold.Sprintf("%d", s.TotalFiles()),
		green.Sprintf("%d", s.TotalInsertions()),
		red.Sprintf("%d", s.TotalDeletions()))
}

// WriteUnified writes every diff as a unified patch, separated by
// rulers.
func (s *Set) WriteUnified(w io.Writer) {
	for i, d := range s.Diffs {
		if i > 0 {
			fmt.Fprintf(w, "\n%s\n\n", dim.Sprint(strings.Repeat("=", 80)))
		}
		fmt.Fprint(w, d.Unified())
	}
}

// WriteSideBySide writes every diff in two-column form.
func (s *Set) WriteSideBySide(w io.Writer, width int) {
	for i, d := range s.Diffs {
		if i > 0 {
			fmt.Fprintf(w, "\n%s\n\n", dim.Sprint(strings.Repeat("=", width)))
		}
		fmt.Fprintf(w, "\n%s\n\n", bold.Sprint(d.Path))
		fmt.Fprint(w, d.SideBySide(width))
	}
}

func (s *Set) String() string {
	return fmt.Sprintf("%d file(s), +%d -%d",
		s.TotalFiles(), s.TotalInsertions(), s.TotalDeletions())
}
