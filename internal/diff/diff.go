// Package diff compares two NAN documents line by line for regression
// checks. Line matching is done by sergi/go-diff; this package groups the
// result into hunks with surrounding context.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultContext is the number of unchanged lines kept around each change.
const DefaultContext = 3

// Op says what happened to a line.
type Op int

const (
	OpEqual  Op = iota // present in both
	OpDelete           // only in expected
	OpInsert           // only in actual
)

func (o Op) prefix() string {
	switch o {
	case OpDelete:
		return "-"
	case OpInsert:
		return "+"
	default:
		return " "
	}
}

// Line is one line of a hunk. Numbers are 1-based; 0 means the line does
// not exist on that side.
type Line struct {
	Op       Op
	Text     string
	Expected int
	Actual   int
}

// Hunk is a run of changes with context.
type Hunk struct {
	ExpectedStart int
	ExpectedCount int
	ActualStart   int
	ActualCount   int
	Lines         []Line
}

// Report is the outcome of one comparison.
type Report struct {
	ExpectedName string
	ActualName   string
	Hunks        []Hunk
}

// Equal reports whether the documents matched.
func (r *Report) Equal() bool { return len(r.Hunks) == 0 }

// Changed counts inserted and deleted lines.
func (r *Report) Changed() (deleted, inserted int) {
	for _, h := range r.Hunks {
		for _, l := range h.Lines {
			switch l.Op {
			case OpDelete:
				deleted++
			case OpInsert:
				inserted++
			}
		}
	}
	return deleted, inserted
}

// Format renders the report as a unified diff. An equal report formats
// to the empty string.
func (r *Report) Format() string {
	if r.Equal() {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n+++ %s\n", r.ExpectedName, r.ActualName)
	for _, h := range r.Hunks {
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", h.ExpectedStart, h.ExpectedCount, h.ActualStart, h.ActualCount)
		for _, l := range h.Lines {
			sb.WriteString(l.Op.prefix())
			sb.WriteString(l.Text)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Comparer holds diff settings.
type Comparer struct {
	dmp     *diffmatchpatch.DiffMatchPatch
	context int
}

// NewComparer creates a comparer keeping context lines around changes.
func NewComparer(context int) *Comparer {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0 // exact results; NAN files are small
	if context < 0 {
		context = 0
	}
	return &Comparer{dmp: dmp, context: context}
}

// Compare diffs two NAN documents with DefaultContext.
func Compare(expectedName, actualName, expected, actual string) *Report {
	return NewComparer(DefaultContext).Compare(expectedName, actualName, expected, actual)
}

// Compare diffs expected against actual. Trailing whitespace on each line
// and trailing blank lines are ignored.
func (c *Comparer) Compare(expectedName, actualName, expected, actual string) *Report {
	a, b, table := c.dmp.DiffLinesToChars(normalize(expected), normalize(actual))
	diffs := c.dmp.DiffMain(a, b, false)
	diffs = c.dmp.DiffCharsToLines(diffs, table)

	return &Report{
		ExpectedName: expectedName,
		ActualName:   actualName,
		Hunks:        c.hunks(lineOps(diffs)),
	}
}

// normalize makes every line end in exactly one newline so the line
// table never sees a final line without its terminator.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func lineOps(diffs []diffmatchpatch.Diff) []Line {
	var (
		out      []Line
		exp, act int
	)
	for _, d := range diffs {
		for _, text := range strings.SplitAfter(d.Text, "\n") {
			if text == "" {
				continue
			}
			text = strings.TrimSuffix(text, "\n")
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				exp++
				act++
				out = append(out, Line{Op: OpEqual, Text: text, Expected: exp, Actual: act})
			case diffmatchpatch.DiffDelete:
				exp++
				out = append(out, Line{Op: OpDelete, Text: text, Expected: exp})
			case diffmatchpatch.DiffInsert:
				act++
				out = append(out, Line{Op: OpInsert, Text: text, Actual: act})
			}
		}
	}
	return out
}

// hunks groups changed lines. Two changes share a hunk when the unchanged
// gap between them fits in the context of both.
func (c *Comparer) hunks(ops []Line) []Hunk {
	var (
		out        []Hunk
		start, end = -1, -1 // op range of the open hunk, end exclusive
	)
	closeHunk := func() {
		if start < 0 {
			return
		}
		out = append(out, makeHunk(ops[start:end]))
		start, end = -1, -1
	}

	for i, op := range ops {
		if op.Op == OpEqual {
			continue
		}
		lo := max(i-c.context, 0)
		if start >= 0 && lo > end {
			closeHunk()
		}
		if start < 0 {
			start = lo
		}
		end = min(i+1+c.context, len(ops))
	}
	closeHunk()
	return out
}

func makeHunk(lines []Line) Hunk {
	h := Hunk{Lines: append([]Line(nil), lines...)}
	for _, l := range lines {
		if l.Op != OpInsert {
			if h.ExpectedStart == 0 {
				h.ExpectedStart = l.Expected
			}
			h.ExpectedCount++
		}
		if l.Op != OpDelete {
			if h.ActualStart == 0 {
				h.ActualStart = l.Actual
			}
			h.ActualCount++
		}
	}
	return h
}
