package sejm

import (
	"strings"

	"sejmcollect/internal/core/normalize"
	perr "sejmcollect/internal/platform/errors"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ExtractText keeps the speech paragraphs of a transcript page.
// Speech is carried by <p> elements without a class attribute; classed paragraphs
// are speaker headers and stage notes. Paragraphs are normalized and joined by newlines
func ExtractText(body string) (string, error) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUpstream, "sejm transcript: parse html")
	}

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.P {
			if !hasClass(n) {
				if s := normalize.Line(textOf(n)); s != "" {
					parts = append(parts, s)
				}
			}
			return
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(doc)
	return strings.Join(parts, "\n"), nil
}

func hasClass(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key == "class" && strings.TrimSpace(a.Val) != "" {
			return true
		}
	}
	return false
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if n.DataAtom == atom.Br {
				b.WriteByte(' ')
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return b.String()
}
