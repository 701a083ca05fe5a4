package parser

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var (
	kindMathInline = ast.NewNodeKind("MathInline")
	kindMathBlock  = ast.NewNodeKind("MathBlock")
)

// mathInlineNode is a $..$ or $$..$$ span inside a paragraph.
type mathInlineNode struct {
	ast.BaseInline
	Source  string
	Display bool
}

func (n *mathInlineNode) Kind() ast.NodeKind { return kindMathInline }

func (n *mathInlineNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Source": n.Source}, nil)
}

// mathBlockNode is a $$ block that may span several lines. Its Lines hold the
// math source.
type mathBlockNode struct {
	ast.BaseBlock
	closed bool
}

func (n *mathBlockNode) Kind() ast.NodeKind { return kindMathBlock }

func (n *mathBlockNode) IsRaw() bool { return true }

func (n *mathBlockNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

// mathExtension registers the dollar math parsers with goldmark.
type mathExtension struct{}

func (mathExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithBlockParsers(util.Prioritized(&mathBlockParser{}, 701)),
		parser.WithInlineParsers(util.Prioritized(&mathInlineParser{}, 501)),
	)
}

var dollars = []byte("$$")

type mathBlockParser struct{}

func (b *mathBlockParser) Trigger() []byte { return []byte{'$'} }

func (b *mathBlockParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, seg := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || pos > 3 || !bytes.HasPrefix(line[pos:], dollars) {
		return nil, parser.NoChildren
	}
	rest := line[pos+2:]
	start := seg.Start + pos + 2
	node := &mathBlockNode{}
	if i := bytes.Index(rest, dollars); i >= 0 {
		// Text after a same-line closer belongs to a paragraph.
		if len(bytes.TrimSpace(rest[i+2:])) > 0 || len(bytes.TrimSpace(rest[:i])) == 0 {
			return nil, parser.NoChildren
		}
		node.Lines().Append(text.NewSegment(start, start+i))
		node.closed = true
	} else if len(bytes.TrimSpace(rest)) > 0 {
		node.Lines().Append(text.NewSegment(start, seg.Stop))
	}
	advanceLine(reader, line, seg)
	return node, parser.NoChildren
}

func (b *mathBlockParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	n := node.(*mathBlockNode)
	if n.closed {
		return parser.Close
	}
	line, seg := reader.PeekLine()
	if line == nil {
		return parser.Close
	}
	if i := bytes.Index(line, dollars); i >= 0 {
		n.Lines().Append(text.NewSegment(seg.Start, seg.Start+i))
		n.closed = true
		advanceLine(reader, line, seg)
		return parser.Close
	}
	n.Lines().Append(seg)
	advanceLine(reader, line, seg)
	return parser.Continue | parser.NoChildren
}

func (b *mathBlockParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (b *mathBlockParser) CanInterruptParagraph() bool { return true }

func (b *mathBlockParser) CanAcceptIndentedLine() bool { return false }

// advanceLine consumes the current line up to its newline.
func advanceLine(reader text.Reader, line []byte, seg text.Segment) {
	n := seg.Len()
	if len(line) > 0 && line[len(line)-1] == '\n' {
		n--
	}
	reader.Advance(n)
}

type mathInlineParser struct{}

func (s *mathInlineParser) Trigger() []byte { return []byte{'$'} }

func (s *mathInlineParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	if len(line) < 2 || line[0] != '$' {
		return nil
	}
	if line[1] == '$' {
		i := bytes.Index(line[2:], dollars)
		if i < 0 || len(bytes.TrimSpace(line[2:2+i])) == 0 {
			return nil
		}
		block.Advance(i + 4)
		return &mathInlineNode{Source: string(line[2 : 2+i]), Display: true}
	}
	end, ok := inlineDollarEnd(string(line), 0)
	if !ok {
		return nil
	}
	block.Advance(end + 1)
	return &mathInlineNode{Source: string(line[1:end])}
}
