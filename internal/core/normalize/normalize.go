// Package normalize cleans text lifted from transcript HTML and API payloads
// Pipeline order
// 1 drop control bytes and invalid UTF-8
// 2 Unicode NFC so Polish diacritics compare and store canonically
// 3 remove format chars (ZWSP, ZWJ, soft hyphen, BOM)
// 4 collapse whitespace, keeping paragraph breaks in Text and flattening them in Line
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// chains are stateful; pool them so Text is safe for concurrent use
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFC,
			runes.Remove(runes.In(unicode.Cf)),
		)
	},
}

// Text normalizes a multi-paragraph body; newline runs survive as a single '\n'
func Text(s string) string {
	if s == "" {
		return ""
	}
	return collapse(canonical(s), true)
}

// Line normalizes a single-line value such as a speaker name or proceeding title
func Line(s string) string {
	if s == "" {
		return ""
	}
	return collapse(canonical(s), false)
}

func canonical(s string) string {
	s = Sanitize(s)
	tr := chainPool.Get().(transform.Transformer)
	out, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		return s
	}
	return out
}

// collapse folds whitespace runs to one space, or to one newline when the run
// held a line break and keepBreaks is set; edges are trimmed
func collapse(s string, keepBreaks bool) string {
	var b strings.Builder
	b.Grow(len(s))
	pending, brk := false, false
	for _, r := range s {
		if unicode.IsSpace(r) {
			pending = true
			if r == '\n' || r == '\r' {
				brk = true
			}
			continue
		}
		if pending && b.Len() > 0 {
			if brk && keepBreaks {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		pending, brk = false, false
		b.WriteRune(r)
	}
	return b.String()
}
