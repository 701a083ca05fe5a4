package typst

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dgallion1/typstgest/internal/doctree"
	"github.com/dgallion1/typstgest/internal/latexmath"
	"github.com/dgallion1/typstgest/internal/parser"
)

func text(s string) *doctree.Text { return &doctree.Text{Value: s} }

func para(inlines ...doctree.Inline) *doctree.Paragraph {
	return &doctree.Paragraph{Inlines: inlines}
}

func render(t *testing.T, blocks ...doctree.Block) string {
	t.Helper()
	out, err := Render(&doctree.Document{Blocks: blocks})
	require.NoError(t, err)
	return out
}

func TestRenderEmpty(t *testing.T) {
	out, err := Render(&doctree.Document{})
	require.NoError(t, err)
	require.Equal(t, "", out)
}

func TestRenderMetadata(t *testing.T) {
	doc := &doctree.Document{
		Metadata: doctree.Metadata{Title: `The "Notes"`, Author: "Ada", Date: "2024"},
		Blocks:   []doctree.Block{para(text("Hi"))},
	}
	out, err := Render(doc)
	require.NoError(t, err)
	require.Equal(t, "#set document(title: \"The \\\"Notes\\\"\")\n#set document(author: \"Ada\")\n\nHi\n", out)
}

func TestRenderBlocks(t *testing.T) {
	tests := []struct {
		name  string
		block doctree.Block
		want  string
	}{
		{"heading", &doctree.Heading{Level: 2, Inlines: []doctree.Inline{text("Intro")}}, "== Intro\n"},
		{"code", &doctree.CodeBlock{Lang: "go", Code: "x := 1"}, "```go\nx := 1\n```\n"},
		{"code with newline", &doctree.CodeBlock{Code: "a\n"}, "```\na\n```\n"},
		{"rule", &doctree.HorizontalRule{}, "#line(length: 100%)\n"},
		{"page break", &doctree.PageBreak{}, "#pagebreak()\n"},
		{"display math", &doctree.MathBlock{Expr: latexmath.Frac(latexmath.Sym("a"), latexmath.Sym("b"))}, "$ a/b $\n"},
		{
			"numbered math",
			&doctree.MathBlock{Expr: latexmath.Sym("x"), Numbered: true, Label: "eq:x"},
			"#math.equation(block: true, numbering: \"(1)\", $ x $) <eq:x>\n",
		},
		{"quote", &doctree.Quote{Blocks: []doctree.Block{para(text("said"))}}, "#quote(block: true)[\nsaid\n]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, render(t, tt.block))
		})
	}
}

func TestRenderBlocksSeparatedByBlankLine(t *testing.T) {
	out := render(t, para(text("one")), para(text("two")))
	require.Equal(t, "one\n\ntwo\n", out)
}

func TestRenderInlines(t *testing.T) {
	x := latexmath.Sym("x")
	tests := []struct {
		name   string
		inline doctree.Inline
		want   string
	}{
		{"escaped text", text(`a*b_c #d $e @f <g \h`), `a\*b\_c \#d \$e \@f \<g \\h`},
		{"raw", &doctree.Raw{Value: `$\bad{$`}, `$\bad{$`},
		{"bold", &doctree.Formatted{Style: doctree.Bold, Inlines: []doctree.Inline{text("b")}}, "*b*"},
		{"italic", &doctree.Formatted{Style: doctree.Italic, Inlines: []doctree.Inline{text("i")}}, "_i_"},
		{"underline", &doctree.Formatted{Style: doctree.Underline, Inlines: []doctree.Inline{text("u")}}, "#underline[u]"},
		{"strike", &doctree.Formatted{Style: doctree.Strikethrough, Inlines: []doctree.Inline{text("s")}}, "#strike[s]"},
		{"monospace", &doctree.Formatted{Style: doctree.Monospace, Inlines: []doctree.Inline{text("a_b")}}, "`a_b`"},
		{"code", &doctree.Code{Value: "f(x)"}, "`f(x)`"},
		{"code with backtick", &doctree.Code{Value: "a`b"}, "#raw(\"a`b\")"},
		{"link", &doctree.Link{URL: "https://typst.app", Inlines: []doctree.Inline{text("Typst")}}, `#link("https://typst.app")[Typst]`},
		{"math", &doctree.MathInline{Expr: &latexmath.Superscript{Base: x, Sup: latexmath.Sym("2")}}, "$x^2$"},
		{"ref", &doctree.Ref{Label: "eq:x"}, "@eq:x"},
		{"line break", &doctree.LineBreak{}, " \\\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want+"\n", render(t, para(tt.inline)))
		})
	}
}

func TestRenderLists(t *testing.T) {
	unordered := &doctree.List{
		Kind: doctree.Unordered,
		Items: [][]doctree.Block{
			{para(text("one"))},
			{para(text("two")), &doctree.List{
				Kind:  doctree.Ordered,
				Items: [][]doctree.Block{{para(text("a"))}, {para(text("b"))}},
			}},
		},
	}
	require.Equal(t, "- one\n- two\n  + a\n  + b\n", render(t, unordered))

	desc := &doctree.List{
		Kind:  doctree.Description,
		Items: [][]doctree.Block{{para(text("a function"))}},
		Terms: [][]doctree.Inline{{text("f")}},
	}
	require.Equal(t, "/ f: a function\n", render(t, desc))
}

func TestRenderTable(t *testing.T) {
	tbl := &doctree.Table{
		Header: []doctree.Cell{{text("n")}, {text("square")}},
		Rows: [][]doctree.Cell{
			{{text("2")}, {&doctree.MathInline{Expr: latexmath.Sym("4")}}},
			{{text("3")}},
		},
	}
	want := "#table(\n" +
		"  columns: 2,\n" +
		"  table.header([n], [square]),\n" +
		"  [2], [$4$],\n" +
		"  [3], [],\n" +
		")\n"
	require.Equal(t, want, render(t, tbl))
	require.Equal(t, "", render(t, &doctree.Table{}))
}

func TestRenderUnsupportedEnvironmentFails(t *testing.T) {
	env := &latexmath.Environment{Name: "unknownEnv", Rows: [][]latexmath.Expr{{latexmath.Sym("a")}}}
	_, err := Render(&doctree.Document{Blocks: []doctree.Block{
		&doctree.MathBlock{Expr: env, Source: `\begin{unknownEnv}a\end{unknownEnv}`},
	}})
	require.Error(t, err)
	var convErr *latexmath.ConversionError
	require.True(t, errors.As(err, &convErr))
	require.Contains(t, err.Error(), "unknownEnv")
}

func TestMath(t *testing.T) {
	x := latexmath.Sym("x")
	inline, err := Math(x, false)
	require.NoError(t, err)
	require.Equal(t, "$x$", inline)

	display, err := Math(x, true)
	require.NoError(t, err)
	require.Equal(t, "$ x $", display)
}

func TestRenderFromMarkdown(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"heading", "# Hello World", "= Hello World\n"},
		{"inline math", "Area $\\pi r^2$.", "Area $pi r^2$.\n"},
		{"display math", "$$\n\\frac{a+b}{c}\n$$", "$ frac(a + b, c) $\n"},
		{"fallback", "Bad $\\badcommand{$ here", "Bad $\\badcommand{$ here\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := (&parser.MarkdownParser{}).Parse(strings.NewReader(tt.input), "")
			require.NoError(t, err)
			out, err := Render(doc)
			require.NoError(t, err)
			require.Equal(t, tt.want, out)
		})
	}
}
