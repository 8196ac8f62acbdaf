package page

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const markClass = "highlight"

// Document is a parsed chapter page whose title and body regions can carry
// search highlight markers.
type Document struct {
	root *html.Node
	url  string
}

// Parse reads a chapter page.
func Parse(r io.Reader, pageURL string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return NewDocument(root, pageURL), nil
}

// NewDocument wraps an already parsed page.
func NewDocument(root *html.Node, pageURL string) *Document {
	return &Document{root: root, url: pageURL}
}

// URL returns the address the page was loaded from.
func (d *Document) URL() string {
	return d.url
}

// Root returns the page's document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Title returns the text of the chapter title region.
func (d *Document) Title() string {
	if t := findFirst(d.root, byClass(titleClasses...)); t != nil {
		return innerText(t)
	}
	return ""
}

func isRegion(n *html.Node) bool {
	return hasClass(n, classBody) || hasClass(n, titleClasses...)
}

// Regions returns the chapter title and body regions in document order.
// A region nested inside another region is covered by its ancestor and is
// not returned separately.
func (d *Document) Regions() []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if isRegion(n) {
			out = append(out, n)
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(d.root)
	return out
}

func isMark(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "mark" && hasClass(n, markClass)
}

// marks returns every highlight marker inside the regions.
func (d *Document) marks() []*html.Node {
	var out []*html.Node
	for _, region := range d.Regions() {
		out = append(out, findAll(region, isMark)...)
	}
	return out
}

// ClearHighlights removes every highlight marker from the regions, keeping
// the marked text in place and merging it back into its neighbours.
func (d *Document) ClearHighlights() {
	for _, m := range d.marks() {
		unwrap(m)
	}
}

func unwrap(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	for child := n.FirstChild; child != nil; child = n.FirstChild {
		n.RemoveChild(child)
		parent.InsertBefore(child, n)
	}
	parent.RemoveChild(n)
	mergeText(parent)
}

// mergeText joins adjacent text nodes and drops empty ones.
func mergeText(parent *html.Node) {
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type != html.TextNode {
			c = next
			continue
		}
		if c.Data == "" {
			parent.RemoveChild(c)
			c = next
			continue
		}
		if next != nil && next.Type == html.TextNode {
			c.Data += next.Data
			parent.RemoveChild(next)
			continue
		}
		c = next
	}
}

// Pattern returns the case-insensitive literal matcher for term.
func Pattern(term string) *regexp.Regexp {
	return regexp.MustCompile("(?i)" + regexp.QuoteMeta(term))
}

// Highlight wraps every case-insensitive occurrence of term inside the text
// of the regions in a <mark class="highlight"> element and returns the number
// of markers inserted. Script and style subtrees are left alone.
func (d *Document) Highlight(term string) int {
	if term == "" {
		return 0
	}
	re := Pattern(term)

	var texts []*html.Node
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			texts = append(texts, n)
			return
		}
		if skipped(n) || isMark(n) {
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}
	for _, region := range d.Regions() {
		collect(region)
	}

	count := 0
	for _, t := range texts {
		count += wrapMatches(t, re)
	}
	return count
}

func wrapMatches(t *html.Node, re *regexp.Regexp) int {
	locs := re.FindAllStringIndex(t.Data, -1)
	if len(locs) == 0 {
		return 0
	}
	parent := t.Parent
	text := t.Data
	last := 0
	for _, loc := range locs {
		if loc[0] > last {
			parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text[last:loc[0]]}, t)
		}
		mark := &html.Node{
			Type:     html.ElementNode,
			Data:     "mark",
			DataAtom: atom.Mark,
			Attr:     []html.Attribute{{Key: "class", Val: markClass}},
		}
		mark.AppendChild(&html.Node{Type: html.TextNode, Data: text[loc[0]:loc[1]]})
		parent.InsertBefore(mark, t)
		last = loc[1]
	}
	if last < len(text) {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text[last:]}, t)
	}
	parent.RemoveChild(t)
	return len(locs)
}

// HasHighlight reports whether a marker wrapping exactly term (ignoring
// case) is present in the regions.
func (d *Document) HasHighlight(term string) bool {
	if term == "" {
		return false
	}
	for _, m := range d.marks() {
		if strings.EqualFold(textContent(m), term) {
			return true
		}
	}
	return false
}

// HighlightCount returns the number of markers currently in the regions.
func (d *Document) HighlightCount() int {
	return len(d.marks())
}

// RegionHTML renders the regions back to HTML. When markAs is set, highlight
// markers are rendered as that element instead of <mark>.
func (d *Document) RegionHTML(markAs string) (string, error) {
	if markAs != "" {
		marks := d.marks()
		for _, m := range marks {
			m.Data, m.DataAtom = markAs, atom.Lookup([]byte(markAs))
		}
		defer func() {
			for _, m := range marks {
				m.Data, m.DataAtom = "mark", atom.Mark
			}
		}()
	}

	var buf bytes.Buffer
	for _, region := range d.Regions() {
		if err := html.Render(&buf, region); err != nil {
			return "", fmt.Errorf("rendering region: %w", err)
		}
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}
