package doctree

import (
	"strings"

	"github.com/dgallion1/typstgest/internal/latexmath"
)

// Document is the root of a parsed document.
type Document struct {
	Metadata Metadata
	Blocks   []Block
}

// Metadata holds document-level properties. Empty fields are absent.
type Metadata struct {
	Title  string
	Author string
	Date   string
}

// Block is a block-level element.
type Block interface {
	block()
}

// Inline is an element inside a paragraph, heading, list item or table cell.
type Inline interface {
	inline()
}

type Heading struct {
	Level   int // 1-based
	Inlines []Inline
}

type Paragraph struct {
	Inlines []Inline
}

type ListKind int

const (
	Unordered ListKind = iota
	Ordered
	Description
)

// List holds one slice of blocks per item. For description lists Terms runs
// parallel to Items.
type List struct {
	Kind  ListKind
	Items [][]Block
	Terms [][]Inline
}

type CodeBlock struct {
	Lang string
	Code string
}

// MathBlock is display math. Source keeps the LaTeX it was parsed from.
type MathBlock struct {
	Expr     latexmath.Expr
	Source   string
	Numbered bool
	Label    string
}

type Quote struct {
	Blocks []Block
}

// Cell is the content of one table cell.
type Cell []Inline

type Table struct {
	Header []Cell
	Rows   [][]Cell
}

type HorizontalRule struct{}

type PageBreak struct{}

// Text is prose that the renderer escapes.
type Text struct {
	Value string
}

// Raw is emitted verbatim. Math that failed to parse is kept as Raw so the
// original source shows up unchanged.
type Raw struct {
	Value string
}

type Style int

const (
	Bold Style = iota
	Italic
	Underline
	Monospace
	Strikethrough
)

type Formatted struct {
	Style   Style
	Inlines []Inline
}

type Code struct {
	Value string
}

type Link struct {
	URL     string
	Inlines []Inline
}

type MathInline struct {
	Expr   latexmath.Expr
	Source string
}

// Ref is a cross reference to a label.
type Ref struct {
	Label string
}

type LineBreak struct{}

func (*Heading) block()        {}
func (*Paragraph) block()      {}
func (*List) block()           {}
func (*CodeBlock) block()      {}
func (*MathBlock) block()      {}
func (*Quote) block()          {}
func (*Table) block()          {}
func (*HorizontalRule) block() {}
func (*PageBreak) block()      {}

func (*Text) inline()       {}
func (*Raw) inline()        {}
func (*Formatted) inline()  {}
func (*Code) inline()       {}
func (*Link) inline()       {}
func (*MathInline) inline() {}
func (*Ref) inline()        {}
func (*LineBreak) inline()  {}

// PlainText flattens inlines to unformatted text. Math contributes its source.
func PlainText(inlines []Inline) string {
	var b strings.Builder
	writePlain(&b, inlines)
	return b.String()
}

func writePlain(b *strings.Builder, inlines []Inline) {
	for _, in := range inlines {
		switch x := in.(type) {
		case *Text:
			b.WriteString(x.Value)
		case *Raw:
			b.WriteString(x.Value)
		case *Code:
			b.WriteString(x.Value)
		case *Formatted:
			writePlain(b, x.Inlines)
		case *Link:
			writePlain(b, x.Inlines)
		case *MathInline:
			b.WriteString(x.Source)
		case *Ref:
			b.WriteString(x.Label)
		case *LineBreak:
			b.WriteByte('\n')
		}
	}
}

// Walk calls blockFn for every block and inlineFn for every inline in doc,
// depth first. Either function may be nil.
func Walk(blocks []Block, blockFn func(Block), inlineFn func(Inline)) {
	for _, bl := range blocks {
		if blockFn != nil {
			blockFn(bl)
		}
		switch x := bl.(type) {
		case *Heading:
			walkInlines(x.Inlines, inlineFn)
		case *Paragraph:
			walkInlines(x.Inlines, inlineFn)
		case *List:
			for _, term := range x.Terms {
				walkInlines(term, inlineFn)
			}
			for _, item := range x.Items {
				Walk(item, blockFn, inlineFn)
			}
		case *Quote:
			Walk(x.Blocks, blockFn, inlineFn)
		case *Table:
			for _, c := range x.Header {
				walkInlines(c, inlineFn)
			}
			for _, row := range x.Rows {
				for _, c := range row {
					walkInlines(c, inlineFn)
				}
			}
		}
	}
}

func walkInlines(inlines []Inline, fn func(Inline)) {
	if fn == nil {
		return
	}
	for _, in := range inlines {
		fn(in)
		switch x := in.(type) {
		case *Formatted:
			walkInlines(x.Inlines, fn)
		case *Link:
			walkInlines(x.Inlines, fn)
		}
	}
}

// MathCounts reports how many math spans doc contains and how many of those
// were kept as raw source because they did not parse.
func (d *Document) MathCounts() (spans, fallbacks int) {
	Walk(d.Blocks, func(b Block) {
		if _, ok := b.(*MathBlock); ok {
			spans++
		}
	}, func(in Inline) {
		switch in.(type) {
		case *MathInline:
			spans++
		case *Raw:
			spans++
			fallbacks++
		}
	})
	return spans, fallbacks
}
