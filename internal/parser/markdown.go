package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/typstgest/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough, mathExtension{}),
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct {
	Options
}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	root := markdown.Parser().Parse(text.NewReader(src))
	c := &mdConverter{src: src, math: mathBuilder{opts: p.Options}}
	blocks, err := c.blocks(root)
	if err != nil {
		return nil, fmt.Errorf("parse markdown: %w", err)
	}

	return &doctree.Document{
		Metadata: doctree.Metadata{Title: titleFromFilename(filename)},
		Blocks:   blocks,
	}, nil
}

// mdConverter walks a goldmark AST and builds doctree blocks.
type mdConverter struct {
	src  []byte
	math mathBuilder
}

func (c *mdConverter) blocks(parent ast.Node) ([]doctree.Block, error) {
	var out []doctree.Block
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		bs, err := c.block(n)
		if err != nil {
			return nil, err
		}
		out = append(out, bs...)
	}
	return out, nil
}

func (c *mdConverter) block(n ast.Node) ([]doctree.Block, error) {
	switch node := n.(type) {
	case *ast.Heading:
		f := &flow{inlineOnly: true}
		if err := c.inlines(f, node); err != nil {
			return nil, err
		}
		return []doctree.Block{&doctree.Heading{Level: node.Level, Inlines: f.inlines()}}, nil

	case *ast.Paragraph, *ast.TextBlock:
		// Inline $$ spans cut the paragraph into display blocks.
		f := &flow{}
		if err := c.inlines(f, node); err != nil {
			return nil, err
		}
		f.flush()
		return f.blocks, nil

	case *ast.List:
		list := &doctree.List{Kind: doctree.Unordered}
		if node.IsOrdered() {
			list.Kind = doctree.Ordered
		}
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			bs, err := c.blocks(item)
			if err != nil {
				return nil, err
			}
			list.Items = append(list.Items, bs)
		}
		return []doctree.Block{list}, nil

	case *ast.FencedCodeBlock:
		return []doctree.Block{&doctree.CodeBlock{
			Lang: string(node.Language(c.src)),
			Code: c.lines(node),
		}}, nil

	case *ast.CodeBlock:
		return []doctree.Block{&doctree.CodeBlock{Code: c.lines(node)}}, nil

	case *ast.Blockquote:
		bs, err := c.blocks(node)
		if err != nil {
			return nil, err
		}
		return []doctree.Block{&doctree.Quote{Blocks: bs}}, nil

	case *ast.ThematicBreak:
		return []doctree.Block{&doctree.HorizontalRule{}}, nil

	case *extast.Table:
		t, err := c.table(node)
		if err != nil {
			return nil, err
		}
		return []doctree.Block{t}, nil

	case *mathBlockNode:
		src := strings.TrimSpace(c.lines(node))
		b, err := c.math.display(src, "$$ "+src+" $$")
		if err != nil {
			return nil, err
		}
		return []doctree.Block{b}, nil
	}
	// HTML blocks and unknown extensions carry nothing we render.
	return nil, nil
}

func (c *mdConverter) table(t *extast.Table) (*doctree.Table, error) {
	tbl := &doctree.Table{}
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []doctree.Cell
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			f := &flow{inlineOnly: true}
			if err := c.inlines(f, cell); err != nil {
				return nil, err
			}
			cells = append(cells, doctree.Cell(f.inlines()))
		}
		if _, ok := row.(*extast.TableHeader); ok {
			tbl.Header = cells
		} else {
			tbl.Rows = append(tbl.Rows, cells)
		}
	}
	return tbl, nil
}

func (c *mdConverter) inlines(f *flow, parent ast.Node) error {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Text:
			f.text(string(node.Segment.Value(c.src)))
			if node.HardLineBreak() {
				f.add(&doctree.LineBreak{})
			} else if node.SoftLineBreak() {
				f.text(" ")
			}

		case *ast.String:
			f.text(string(node.Value))

		case *ast.Emphasis:
			style := doctree.Italic
			if node.Level >= 2 {
				style = doctree.Bold
			}
			inner, err := c.inner(node)
			if err != nil {
				return err
			}
			f.add(&doctree.Formatted{Style: style, Inlines: inner})

		case *extast.Strikethrough:
			inner, err := c.inner(node)
			if err != nil {
				return err
			}
			f.add(&doctree.Formatted{Style: doctree.Strikethrough, Inlines: inner})

		case *ast.CodeSpan:
			f.add(&doctree.Code{Value: c.plain(node)})

		case *ast.Link:
			inner, err := c.inner(node)
			if err != nil {
				return err
			}
			f.add(&doctree.Link{URL: string(node.Destination), Inlines: inner})

		case *ast.Image:
			inner, err := c.inner(node)
			if err != nil {
				return err
			}
			f.add(&doctree.Link{URL: string(node.Destination), Inlines: inner})

		case *ast.AutoLink:
			f.add(&doctree.Link{
				URL:     string(node.URL(c.src)),
				Inlines: []doctree.Inline{&doctree.Text{Value: string(node.Label(c.src))}},
			})

		case *mathInlineNode:
			if err := c.mathInline(f, node); err != nil {
				return err
			}

		case *ast.RawHTML:

		default:
			if err := c.inlines(f, n); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *mdConverter) mathInline(f *flow, node *mathInlineNode) error {
	if node.Display && !f.inlineOnly {
		b, err := c.math.display(node.Source, "$$ "+node.Source+" $$")
		if err != nil {
			return err
		}
		f.block(b)
		return nil
	}
	raw := "$" + node.Source + "$"
	if node.Display {
		raw = "$$" + node.Source + "$$"
	}
	in, err := c.math.inline(node.Source, raw)
	if err != nil {
		return err
	}
	f.add(in)
	return nil
}

// inner converts the children of a span element.
func (c *mdConverter) inner(n ast.Node) ([]doctree.Inline, error) {
	f := &flow{inlineOnly: true}
	if err := c.inlines(f, n); err != nil {
		return nil, err
	}
	return f.cur, nil
}

// lines joins the raw source lines of a block node.
func (c *mdConverter) lines(n ast.Node) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(c.src))
	}
	return b.String()
}

// plain collects the text under an inline node.
func (c *mdConverter) plain(n ast.Node) string {
	var b strings.Builder
	for ch := n.FirstChild(); ch != nil; ch = ch.NextSibling() {
		switch x := ch.(type) {
		case *ast.Text:
			b.Write(x.Segment.Value(c.src))
		case *ast.String:
			b.Write(x.Value)
		default:
			b.WriteString(c.plain(ch))
		}
	}
	return b.String()
}
