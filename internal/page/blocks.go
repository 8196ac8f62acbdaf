package page

import (
	"strings"

	"golang.org/x/net/html"
)

// BlockKind tells the renderer how to lay out a block.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockListItem
)

// Span is a run of text, either highlighted or plain.
type Span struct {
	Text   string
	Marked bool
}

// Block is one paragraph-level piece of a region.
type Block struct {
	Kind  BlockKind
	Spans []Span
}

// Text returns the block's text without markup.
func (b Block) Text() string {
	var sb strings.Builder
	for _, s := range b.Spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// TitleBlocks returns the title region split into blocks.
func (d *Document) TitleBlocks() []Block {
	t := findFirst(d.root, byClass(titleClasses...))
	if t == nil {
		return nil
	}
	return splitBlocks(t, BlockHeading)
}

// BodyBlocks returns every body region split into blocks, in order.
func (d *Document) BodyBlocks() []Block {
	var out []Block
	for _, region := range d.Regions() {
		if !hasClass(region, classBody) {
			continue
		}
		out = append(out, splitBlocks(region, BlockParagraph)...)
	}
	return out
}

type blockBuilder struct {
	blocks []Block
	cur    Block
}

func (b *blockBuilder) flush() {
	spans := b.cur.Spans
	if len(spans) > 0 {
		spans[0].Text = strings.TrimLeft(spans[0].Text, " ")
		spans[len(spans)-1].Text = strings.TrimRight(spans[len(spans)-1].Text, " ")
	}
	kept := spans[:0]
	for _, s := range spans {
		if s.Text != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) > 0 {
		b.blocks = append(b.blocks, Block{Kind: b.cur.Kind, Spans: kept})
	}
	b.cur = Block{Kind: b.cur.Kind}
}

func (b *blockBuilder) add(text string, marked bool) {
	text = collapseSpaces(text)
	if text == "" {
		return
	}
	n := len(b.cur.Spans)
	if n > 0 && strings.HasSuffix(b.cur.Spans[n-1].Text, " ") && strings.HasPrefix(text, " ") {
		text = text[1:]
	}
	if n > 0 && b.cur.Spans[n-1].Marked == marked {
		b.cur.Spans[n-1].Text += text
		return
	}
	b.cur.Spans = append(b.cur.Spans, Span{Text: text, Marked: marked})
}

func collapseSpaces(s string) string {
	if s == "" {
		return ""
	}
	lead := strings.IndexFunc(s, func(r rune) bool { return !isSpace(r) }) != 0
	trail := isSpace(rune(s[len(s)-1]))
	body := strings.Join(strings.Fields(s), " ")
	if body == "" {
		return " "
	}
	if lead {
		body = " " + body
	}
	if trail {
		body += " "
	}
	return body
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f'
}

func blockKind(n *html.Node, fallback BlockKind) BlockKind {
	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return BlockHeading
	case "li":
		return BlockListItem
	case "p", "blockquote", "pre":
		return BlockParagraph
	}
	return fallback
}

func splitBlocks(region *html.Node, fallback BlockKind) []Block {
	b := &blockBuilder{cur: Block{Kind: fallback}}
	var walk func(n *html.Node, marked bool, kind BlockKind)
	walk = func(n *html.Node, marked bool, kind BlockKind) {
		switch {
		case n.Type == html.TextNode:
			b.add(n.Data, marked)
			return
		case skipped(n):
			return
		case n.Type == html.ElementNode && n.Data == "br":
			b.flush()
			return
		}
		if isMark(n) {
			marked = true
		}
		block := n != region && isBlock(n)
		if block {
			b.flush()
			kind = blockKind(n, kind)
			b.cur.Kind = kind
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child, marked, kind)
		}
		if block {
			b.flush()
			b.cur.Kind = fallback
		}
	}
	walk(region, false, fallback)
	b.flush()
	return b.blocks
}
