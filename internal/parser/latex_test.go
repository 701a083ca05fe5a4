package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/typstgest/internal/doctree"
	"github.com/dgallion1/typstgest/internal/latexmath"
)

func parseLatex(t *testing.T, input string, opts Options) *doctree.Document {
	t.Helper()
	p := &LatexParser{Options: opts}
	doc, err := p.Parse(strings.NewReader(input), "doc.tex")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return doc
}

const quadraticDoc = `\documentclass[11pt]{article}
\usepackage{amsmath}
\title{Quadratic Notes}
\author{Ada \and Grace}
\date{2024}
\begin{document}
\maketitle
% a comment line
\section{Introduction}
The roots of $ax^2+bx+c=0$ are \textbf{given} by % trailing comment
\begin{equation}
x = \frac{-b \pm \sqrt{b^2-4ac}}{2a} \label{eq:roots}
\end{equation}
See \eqref{eq:roots}.

\subsection*{Steps}
\begin{enumerate}
\item Compute the discriminant.
\item Take the root.
\end{enumerate}
\begin{verbatim}
x = (-b + sqrt(d)) / (2*a) % not a comment
\end{verbatim}
\end{document}
`

func TestLatexParser_Document(t *testing.T) {
	doc := parseLatex(t, quadraticDoc, Options{})

	want := doctree.Metadata{Title: "Quadratic Notes", Author: "Ada, Grace", Date: "2024"}
	if doc.Metadata != want {
		t.Errorf("expected metadata %+v, got %+v", want, doc.Metadata)
	}
	if len(doc.Blocks) != 7 {
		t.Fatalf("expected 7 blocks, got %d: %#v", len(doc.Blocks), doc.Blocks)
	}

	if h, ok := doc.Blocks[0].(*doctree.Heading); !ok || h.Level != 1 || blockText(h) != "Introduction" {
		t.Errorf("expected section heading, got %#v", doc.Blocks[0])
	}

	para := doc.Blocks[1].(*doctree.Paragraph)
	if got := doctree.PlainText(para.Inlines); got != "The roots of ax^2+bx+c=0 are given by" {
		t.Errorf("unexpected paragraph %q", got)
	}
	if m, ok := para.Inlines[1].(*doctree.MathInline); !ok || m.Source != "ax^2+bx+c=0" {
		t.Errorf("expected inline math, got %#v", para.Inlines[1])
	}
	if f, ok := para.Inlines[3].(*doctree.Formatted); !ok || f.Style != doctree.Bold {
		t.Errorf("expected bold, got %#v", para.Inlines[3])
	}

	eq, ok := doc.Blocks[2].(*doctree.MathBlock)
	if !ok {
		t.Fatalf("expected equation, got %#v", doc.Blocks[2])
	}
	if !eq.Numbered || eq.Label != "eq:roots" {
		t.Errorf("expected numbered equation labelled eq:roots, got %+v", eq)
	}
	if eq.Source != `x = \frac{-b \pm \sqrt{b^2-4ac}}{2a}` {
		t.Errorf("unexpected equation source %q", eq.Source)
	}

	see := doc.Blocks[3].(*doctree.Paragraph)
	if ref, ok := see.Inlines[1].(*doctree.Ref); !ok || ref.Label != "eq:roots" {
		t.Errorf("expected reference, got %#v", see.Inlines)
	}

	if h, ok := doc.Blocks[4].(*doctree.Heading); !ok || h.Level != 2 || blockText(h) != "Steps" {
		t.Errorf("expected starred subsection, got %#v", doc.Blocks[4])
	}

	list, ok := doc.Blocks[5].(*doctree.List)
	if !ok || list.Kind != doctree.Ordered || len(list.Items) != 2 {
		t.Fatalf("expected 2-item enumerate, got %#v", doc.Blocks[5])
	}
	if got := blockText(list.Items[0][0]); got != "Compute the discriminant." {
		t.Errorf("unexpected first item %q", got)
	}

	code, ok := doc.Blocks[6].(*doctree.CodeBlock)
	if !ok || code.Code != "x = (-b + sqrt(d)) / (2*a) % not a comment\n" {
		t.Errorf("expected verbatim block, got %#v", doc.Blocks[6])
	}
}

func TestLatexParser_BodyOnly(t *testing.T) {
	doc := parseLatex(t, "Just \\emph{text} with \\[ x^2 \\] display.", Options{})
	if len(doc.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(doc.Blocks))
	}
	if got := blockText(doc.Blocks[0]); got != "Just text with" {
		t.Errorf("unexpected text %q", got)
	}
	if mb, ok := doc.Blocks[1].(*doctree.MathBlock); !ok || mb.Numbered {
		t.Errorf("expected unnumbered display math, got %#v", doc.Blocks[1])
	}
	if got := blockText(doc.Blocks[2]); got != "display." {
		t.Errorf("unexpected text %q", got)
	}
}

func TestLatexParser_Align(t *testing.T) {
	doc := parseLatex(t, "\\begin{align*}\na &= b \\\\\nc &= d\n\\end{align*}", Options{})
	mb, ok := doc.Blocks[0].(*doctree.MathBlock)
	if !ok {
		t.Fatalf("expected math block, got %#v", doc.Blocks[0])
	}
	if mb.Numbered {
		t.Error("align* should not be numbered")
	}
	env, ok := mb.Expr.(*latexmath.Environment)
	if !ok || env.Name != "aligned" || len(env.Rows) != 2 {
		t.Errorf("expected two-row aligned environment, got %#v", mb.Expr)
	}
}

func TestLatexParser_DescriptionAndNesting(t *testing.T) {
	input := `\begin{description}
\item[Term] Definition.
\item[Other] \begin{itemize}
  \item nested
  \end{itemize}
\end{description}`
	doc := parseLatex(t, input, Options{})
	list, ok := doc.Blocks[0].(*doctree.List)
	if !ok || list.Kind != doctree.Description {
		t.Fatalf("expected description list, got %#v", doc.Blocks[0])
	}
	if len(list.Terms) != 2 || doctree.PlainText(list.Terms[0]) != "Term" {
		t.Errorf("unexpected terms %#v", list.Terms)
	}
	if got := blockText(list.Items[0][0]); got != "Definition." {
		t.Errorf("unexpected definition %q", got)
	}
	inner, ok := list.Items[1][0].(*doctree.List)
	if !ok || len(inner.Items) != 1 {
		t.Errorf("expected nested itemize, got %#v", list.Items[1])
	}
}

func TestLatexParser_Tabular(t *testing.T) {
	input := `\begin{tabular}{|l|c|}
\hline
Name & Value \\
\hline
$x$ & 1 \\
\end{tabular}`
	doc := parseLatex(t, input, Options{})
	tbl, ok := doc.Blocks[0].(*doctree.Table)
	if !ok {
		t.Fatalf("expected table, got %#v", doc.Blocks[0])
	}
	if len(tbl.Header) != 2 || doctree.PlainText(tbl.Header[1]) != "Value" {
		t.Errorf("unexpected header %#v", tbl.Header)
	}
	if len(tbl.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(tbl.Rows))
	}
	if _, ok := tbl.Rows[0][0][0].(*doctree.MathInline); !ok {
		t.Errorf("expected math cell, got %#v", tbl.Rows[0][0])
	}
}

func TestLatexParser_InlineCommands(t *testing.T) {
	doc := parseLatex(t, `\texttt{a\_b} \href{https://typst.app}{Typst} 50\% \underline{u}\\next`, Options{})
	inl := doc.Blocks[0].(*doctree.Paragraph).Inlines

	var sawCode, sawLink, sawUnderline, sawBreak bool
	for _, in := range inl {
		switch x := in.(type) {
		case *doctree.Code:
			sawCode = x.Value == "a_b"
		case *doctree.Link:
			sawLink = x.URL == "https://typst.app" && doctree.PlainText(x.Inlines) == "Typst"
		case *doctree.Formatted:
			sawUnderline = x.Style == doctree.Underline
		case *doctree.LineBreak:
			sawBreak = true
		}
	}
	if !sawCode || !sawLink || !sawUnderline || !sawBreak {
		t.Errorf("missing inline element in %#v", inl)
	}
	if !strings.Contains(doctree.PlainText(inl), "50%") {
		t.Errorf("expected escaped percent, got %q", doctree.PlainText(inl))
	}
}

func TestLatexParser_MathFallbackAndStrict(t *testing.T) {
	doc := parseLatex(t, `Bad $\badcommand{$ here.`, Options{})
	inl := doc.Blocks[0].(*doctree.Paragraph).Inlines
	if raw, ok := inl[1].(*doctree.Raw); !ok || raw.Value != `$\badcommand{$` {
		t.Errorf("expected raw fallback, got %#v", inl)
	}

	p := &LatexParser{Options: Options{Strict: true}}
	_, err := p.Parse(strings.NewReader(`Bad $\badcommand{$ here.`), "doc.tex")
	var mathErr *MathError
	if !errors.As(err, &mathErr) {
		t.Fatalf("expected MathError, got %v", err)
	}
}

func TestLatexParser_PageBreakAndComments(t *testing.T) {
	doc := parseLatex(t, "one % gone\nstill one\n\\newpage\ntwo", Options{})
	if len(doc.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(doc.Blocks))
	}
	if got := blockText(doc.Blocks[0]); got != "one still one" {
		t.Errorf("unexpected text %q", got)
	}
	if _, ok := doc.Blocks[1].(*doctree.PageBreak); !ok {
		t.Errorf("expected page break, got %#v", doc.Blocks[1])
	}
}
