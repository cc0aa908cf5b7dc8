package extract

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// TextExtractor turns HTML pages and provider snippets into plain text
type TextExtractor struct {
	skip map[string]bool
}

// NewTextExtractor creates a new text extractor
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{
		skip: map[string]bool{
			"script": true, "style": true, "noscript": true, "iframe": true,
			"nav": true, "header": true, "footer": true, "aside": true,
			"form": true, "svg": true, "template": true,
		},
	}
}

// Extract returns the visible text of an HTML document, whitespace collapsed
func (e *TextExtractor) Extract(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	// Prefer the main content region when the page marks one
	root := findFirst(doc, "article")
	if root == nil {
		root = findFirst(doc, "main")
	}
	if root == nil {
		root = doc
	}

	return collapseSpace(e.visibleText(root)), nil
}

// visibleText extracts text nodes, skipping non-content elements
func (e *TextExtractor) visibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && e.skip[n.Data] {
			return
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}

// Snippet strips inline markup (e.g. <b> highlights) and entities from a
// search-provider snippet. Text that is not HTML passes through unchanged
// apart from whitespace collapsing.
func Snippet(raw string) string {
	if !strings.ContainsAny(raw, "<&") {
		return collapseSpace(raw)
	}

	var buf strings.Builder
	z := html.NewTokenizer(strings.NewReader(raw))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapseSpace(buf.String())
		case html.TextToken:
			buf.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				buf.WriteByte(' ')
			}
		}
	}
}

// Truncate shortens text to at most max characters, cutting at a word
// boundary when one is near and appending an ellipsis
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:max])
	if idx := strings.LastIndexAny(cut, " \t\n"); idx > len(cut)*3/4 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + "…"
}

// findFirst returns the first element with the given tag, depth first
func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
