package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/typstgest/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML files.
type HTMLParser struct {
	Options
}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc := &doctree.Document{
		Metadata: doctree.Metadata{Title: titleFromFilename(filename)},
	}

	// Extract title from <title> tag if present.
	if title := findTitle(root); title != "" {
		doc.Metadata.Title = title
	}

	// Find <body> or use whole document.
	body := findBody(root)
	if body == nil {
		body = root
	}
	c := &htmlConverter{math: mathBuilder{opts: p.Options}}
	f := &flow{}
	if err := c.children(f, body); err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	f.flush()
	doc.Blocks = f.blocks
	return doc, nil
}

type htmlConverter struct {
	math mathBuilder
}

func (c *htmlConverter) children(f *flow, n *html.Node) error {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if err := c.node(f, ch); err != nil {
			return err
		}
	}
	return nil
}

func (c *htmlConverter) node(f *flow, n *html.Node) error {
	switch n.Type {
	case html.TextNode:
		return c.math.prose(f, collapseSpace(n.Data))
	case html.ElementNode:
	case html.DocumentNode:
		return c.children(f, n)
	default:
		return nil
	}

	if level := headingLevel(n.Data); level > 0 {
		inl, err := c.inlines(n)
		if err != nil {
			return err
		}
		f.block(&doctree.Heading{Level: level, Inlines: trimInlines(inl)})
		return nil
	}

	switch n.Data {
	// Skip non-content elements.
	case "script", "style", "nav", "footer", "header", "head", "title", "noscript":
		return nil

	case "br":
		f.add(&doctree.LineBreak{})

	case "hr":
		f.block(&doctree.HorizontalRule{})

	case "pre":
		f.block(&doctree.CodeBlock{Lang: codeLanguage(n), Code: rawText(n)})

	case "blockquote":
		blocks, err := c.blocks(n)
		if err != nil {
			return err
		}
		f.block(&doctree.Quote{Blocks: blocks})

	case "ul", "ol":
		list := &doctree.List{Kind: doctree.Unordered}
		if n.Data == "ol" {
			list.Kind = doctree.Ordered
		}
		for li := n.FirstChild; li != nil; li = li.NextSibling {
			if li.Type != html.ElementNode || li.Data != "li" {
				continue
			}
			blocks, err := c.blocks(li)
			if err != nil {
				return err
			}
			list.Items = append(list.Items, blocks)
		}
		f.block(list)

	case "dl":
		list, err := c.descriptionList(n)
		if err != nil {
			return err
		}
		f.block(list)

	case "table":
		t, err := c.table(n)
		if err != nil {
			return err
		}
		f.block(t)

	case "strong", "b":
		return c.styled(f, n, doctree.Bold)
	case "em", "i", "cite":
		return c.styled(f, n, doctree.Italic)
	case "u", "ins":
		return c.styled(f, n, doctree.Underline)
	case "s", "del", "strike":
		return c.styled(f, n, doctree.Strikethrough)

	case "code", "kbd", "samp", "tt":
		f.add(&doctree.Code{Value: rawText(n)})

	case "a":
		inl, err := c.inlines(n)
		if err != nil {
			return err
		}
		href := attr(n, "href")
		if href == "" {
			f.add(inl...)
			return nil
		}
		f.add(&doctree.Link{URL: href, Inlines: inl})

	case "p", "div", "section", "article", "main", "aside", "figure", "figcaption", "body", "html", "center":
		// Block containers end the paragraph around them.
		f.flush()
		if err := c.children(f, n); err != nil {
			return err
		}
		f.flush()

	default:
		return c.children(f, n)
	}
	return nil
}

// blocks converts the children of n into a fresh block list.
func (c *htmlConverter) blocks(n *html.Node) ([]doctree.Block, error) {
	f := &flow{}
	if err := c.children(f, n); err != nil {
		return nil, err
	}
	f.flush()
	return f.blocks, nil
}

func (c *htmlConverter) inlines(n *html.Node) ([]doctree.Inline, error) {
	f := &flow{inlineOnly: true}
	if err := c.children(f, n); err != nil {
		return nil, err
	}
	return f.cur, nil
}

func (c *htmlConverter) styled(f *flow, n *html.Node, style doctree.Style) error {
	inl, err := c.inlines(n)
	if err != nil {
		return err
	}
	f.add(&doctree.Formatted{Style: style, Inlines: inl})
	return nil
}

func (c *htmlConverter) descriptionList(n *html.Node) (*doctree.List, error) {
	list := &doctree.List{Kind: doctree.Description}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type != html.ElementNode {
			continue
		}
		switch ch.Data {
		case "dt":
			term, err := c.inlines(ch)
			if err != nil {
				return nil, err
			}
			list.Terms = append(list.Terms, trimInlines(term))
			list.Items = append(list.Items, nil)
		case "dd":
			blocks, err := c.blocks(ch)
			if err != nil {
				return nil, err
			}
			if len(list.Items) == 0 {
				list.Terms = append(list.Terms, nil)
				list.Items = append(list.Items, nil)
			}
			last := len(list.Items) - 1
			list.Items[last] = append(list.Items[last], blocks...)
		}
	}
	return list, nil
}

func (c *htmlConverter) table(n *html.Node) (*doctree.Table, error) {
	t := &doctree.Table{}
	var walk func(*html.Node, bool) error
	walk = func(n *html.Node, inHead bool) error {
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			if ch.Type != html.ElementNode {
				continue
			}
			switch ch.Data {
			case "thead":
				if err := walk(ch, true); err != nil {
					return err
				}
			case "tbody", "tfoot":
				if err := walk(ch, false); err != nil {
					return err
				}
			case "tr":
				row, header, err := c.tableRow(ch)
				if err != nil {
					return err
				}
				if (inHead || header) && t.Header == nil && len(t.Rows) == 0 {
					t.Header = row
				} else {
					t.Rows = append(t.Rows, row)
				}
			}
		}
		return nil
	}
	if err := walk(n, false); err != nil {
		return nil, err
	}
	return t, nil
}

// tableRow converts one <tr>. header reports whether every cell is a <th>.
func (c *htmlConverter) tableRow(tr *html.Node) (cells []doctree.Cell, header bool, err error) {
	header = true
	for td := tr.FirstChild; td != nil; td = td.NextSibling {
		if td.Type != html.ElementNode || (td.Data != "td" && td.Data != "th") {
			continue
		}
		if td.Data == "td" {
			header = false
		}
		inl, err := c.inlines(td)
		if err != nil {
			return nil, false, err
		}
		cells = append(cells, doctree.Cell(trimInlines(inl)))
	}
	return cells, header && len(cells) > 0, nil
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// codeLanguage reads a language-x class from a <pre> or its <code> child.
func codeLanguage(pre *html.Node) string {
	nodes := []*html.Node{pre}
	if ch := pre.FirstChild; ch != nil && ch.Type == html.ElementNode && ch.Data == "code" {
		nodes = append(nodes, ch)
	}
	for _, n := range nodes {
		for _, class := range strings.Fields(attr(n, "class")) {
			if lang, ok := strings.CutPrefix(class, "language-"); ok {
				return lang
			}
		}
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// rawText concatenates text nodes without touching whitespace.
func rawText(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func textContent(n *html.Node) string {
	return strings.TrimSpace(rawText(n))
}

// collapseSpace folds whitespace runs into one space the way browsers do.
func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for i := 0; i < len(s); i++ {
		if isBlank(s[i]) {
			space = true
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteByte(s[i])
	}
	if space {
		b.WriteByte(' ')
	}
	return b.String()
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
