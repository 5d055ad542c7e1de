// Package diff renders line-based unified diffs between two versions of a
// configuration file.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Result holds a rendered diff and its line statistics.
type Result struct {
	Unified string
	Added   int
	Deleted int
}

// Empty reports whether the two versions were identical.
func (r Result) Empty() bool {
	return r.Added == 0 && r.Deleted == 0
}

// Generator renders unified diffs with a fixed amount of context.
type Generator struct {
	contextLines int
}

// NewGenerator creates a Generator; negative context is treated as zero.
func NewGenerator(contextLines int) *Generator {
	if contextLines < 0 {
		contextLines = 0
	}
	return &Generator{contextLines: contextLines}
}

type line struct {
	op   diffmatchpatch.Operation
	text string
}

// Unified diffs oldContent against newContent, labelling both sides with name.
func (g *Generator) Unified(oldContent, newContent, name string) Result {
	if oldContent == newContent {
		return Result{}
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var lines []line
	var res Result
	for _, d := range diffs {
		for _, text := range splitLines(d.Text) {
			lines = append(lines, line{op: d.Type, text: text})
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				res.Added++
			case diffmatchpatch.DiffDelete:
				res.Deleted++
			}
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", name, name)
	for _, h := range g.hunks(lines) {
		sb.WriteString(h)
	}
	res.Unified = sb.String()
	return res
}

// hunks groups changed lines with their surrounding context.
func (g *Generator) hunks(lines []line) []string {
	var out []string
	oldLine, newLine := 1, 1
	i := 0
	for i < len(lines) {
		if lines[i].op == diffmatchpatch.DiffEqual {
			oldLine++
			newLine++
			i++
			continue
		}

		start := max(0, i-g.contextLines)
		oldStart := oldLine - (i - start)
		newStart := newLine - (i - start)

		// Extend the hunk until a run of equal lines longer than twice the
		// context separates it from the next change.
		end := i
		for end < len(lines) {
			if lines[end].op != diffmatchpatch.DiffEqual {
				end++
				continue
			}
			run := end
			for run < len(lines) && lines[run].op == diffmatchpatch.DiffEqual {
				run++
			}
			if run == len(lines) || run-end > 2*g.contextLines {
				end = min(end+g.contextLines, len(lines))
				break
			}
			end = run
		}

		var body strings.Builder
		oldCount, newCount := 0, 0
		for _, l := range lines[start:end] {
			switch l.op {
			case diffmatchpatch.DiffEqual:
				body.WriteString(" " + l.text + "\n")
				oldCount++
				newCount++
			case diffmatchpatch.DiffDelete:
				body.WriteString("-" + l.text + "\n")
				oldCount++
			case diffmatchpatch.DiffInsert:
				body.WriteString("+" + l.text + "\n")
				newCount++
			}
		}
		out = append(out, fmt.Sprintf("@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)+body.String())

		for _, l := range lines[i:end] {
			if l.op != diffmatchpatch.DiffInsert {
				oldLine++
			}
			if l.op != diffmatchpatch.DiffDelete {
				newLine++
			}
		}
		i = end
	}
	return out
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{""}
	}
	return strings.Split(s, "\n")
}
