package extractor

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	spacesRegex   = regexp.MustCompile(`[ \t\f\r\v]+`)
	newlinesRegex = regexp.MustCompile(`\s*\n\s*`)
)

var skippedElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true,
	atom.Svg: true, atom.Template: true, atom.Iframe: true, atom.Head: true,
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Tr: true, atom.Td: true, atom.Br: true, atom.Table: true, atom.Dd: true, atom.Dt: true,
}

// PageText renders the visible text of a document with one line per block element.
// Addresses of mailto links are written next to the link text so they take part in text search.
func PageText(document string) string {
	root, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		}

		block := n.Type == html.ElementNode && blockElements[n.DataAtom]
		if block {
			sb.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			if address := mailtoAddress(attr(n, "href")); address != "" {
				sb.WriteString(" " + address + " ")
			}
		}
		if block {
			sb.WriteByte('\n')
		}
	}
	walk(root)

	return normalizeText(sb.String())
}

func normalizeText(text string) string {
	text = spacesRegex.ReplaceAllString(text, " ")
	text = newlinesRegex.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

// collapse folds all whitespace, including newlines, into single spaces.
func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func truncate(text string, maxRunes int) string {
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxRunes]))
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func mailtoAddress(href string) string {
	href = strings.TrimSpace(href)
	if !strings.HasPrefix(strings.ToLower(href), "mailto:") {
		return ""
	}
	address := href[len("mailto:"):]
	if i := strings.IndexByte(address, '?'); i >= 0 {
		address = address[:i]
	}
	return strings.TrimSpace(address)
}
