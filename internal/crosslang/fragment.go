// Package crosslang implements the cross-syntax language: Python-dialect
// source with embedded SQL assignments of the form
//
//	customers = {{ SELECT * FROM customers }}
//
// Each embedded query runs against the active connection and binds its
// result table to the assignment target before the remaining script runs.
package crosslang

import (
	"regexp"
	"strings"
)

// Fragment is one located embedded-query occurrence in source text.
type Fragment struct {
	// Variable is the assignment target, a valid identifier.
	Variable string

	// SQL is the query text between the braces, trimmed at the outer
	// edges; interior newlines are preserved.
	SQL string

	// Start and End are byte offsets of the full match in the original
	// source, used to build the rewritten source.
	Start int
	End   int
}

// fragmentPattern matches "name = {{ sql }}". The body match is
// non-greedy: the first "}}" after an opening "{{" closes the fragment,
// so a literal "}}" inside the SQL terminates it early. This is a known
// limitation, kept deliberately; no escape syntax exists.
var fragmentPattern = regexp.MustCompile(`(?s)([A-Za-z_][A-Za-z0-9_]*)\s*=\s*\{\{(.*?)\}\}`)

// sqlPreviewLen bounds the query text echoed into rewrite placeholders.
const sqlPreviewLen = 30

// Extract returns every well-formed fragment in source, in left-to-right
// order. It is a pure function: no side effects, same output for the
// same input. Matches whose SQL is empty after trimming are not
// well-formed and are skipped. No fragments found yields an empty slice.
func Extract(source string) []Fragment {
	matches := fragmentPattern.FindAllStringSubmatchIndex(source, -1)

	var fragments []Fragment
	for _, m := range matches {
		sqlText := strings.TrimSpace(source[m[4]:m[5]])
		if sqlText == "" {
			continue
		}
		fragments = append(fragments, Fragment{
			Variable: source[m[2]:m[3]],
			SQL:      sqlText,
			Start:    m[0],
			End:      m[1],
		})
	}
	return fragments
}

// Rewrite replaces each fragment's span with an inert comment placeholder
// so the residual source is plain script. The placeholder keeps the
// span's newline count, so line numbers in later error messages still
// point at the original source.
func Rewrite(source string, fragments []Fragment) string {
	if len(fragments) == 0 {
		return source
	}

	var b strings.Builder
	b.Grow(len(source))

	prev := 0
	for _, f := range fragments {
		b.WriteString(source[prev:f.Start])
		b.WriteString(placeholder(f))
		b.WriteString(strings.Repeat("\n", strings.Count(source[f.Start:f.End], "\n")))
		prev = f.End
	}
	b.WriteString(source[prev:])

	return b.String()
}

// placeholder renders the single-line comment left where a fragment was.
func placeholder(f Fragment) string {
	preview := f.SQL
	if runes := []rune(preview); len(runes) > sqlPreviewLen {
		preview = string(runes[:sqlPreviewLen]) + "..."
	}
	// Collapse newlines so the placeholder stays on one line.
	preview = strings.Join(strings.Fields(preview), " ")
	return "# " + f.Variable + " = {{ " + preview + " }}"
}
