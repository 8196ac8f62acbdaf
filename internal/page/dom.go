package page

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// hasClass reports whether n is an element carrying every given class.
func hasClass(n *html.Node, classes ...string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	have := strings.Fields(attr(n, "class"))
	for _, want := range classes {
		found := false
		for _, c := range have {
			if c == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// findAll returns every node below root (root included) matching match, in
// document order.
func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			out = append(out, n)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return out
}

// findFirst returns the first node below root matching match, or nil.
func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	if match(root) {
		return root
	}
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		if n := findFirst(child, match); n != nil {
			return n
		}
	}
	return nil
}

func byClass(classes ...string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return hasClass(n, classes...)
	}
}

// skipped reports whether an element's subtree never contributes text.
func skipped(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}

func isBlock(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "p", "div", "section", "article", "blockquote", "pre", "ul", "ol", "li",
		"h1", "h2", "h3", "h4", "h5", "h6", "figure", "figcaption", "table", "tr", "hr":
		return true
	}
	return false
}

// textContent returns all text content within a node, excluding script and
// style subtrees.
func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	if skipped(n) {
		return ""
	}
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		sb.WriteString(textContent(child))
	}
	return sb.String()
}

// innerText approximates the rendered text of a node: block elements and
// <br> become line breaks, runs of whitespace collapse to one space.
func innerText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(n.Data)
			return
		case skipped(n):
			return
		case n.Type == html.ElementNode && n.Data == "br":
			sb.WriteByte('\n')
			return
		}
		block := isBlock(n)
		if block {
			sb.WriteByte('\n')
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if block {
			sb.WriteByte('\n')
		}
	}
	walk(n)

	lines := strings.Split(sb.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func resolveURL(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	relURL, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(relURL).String(), nil
}
