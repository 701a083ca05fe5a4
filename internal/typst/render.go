// Package typst renders a doctree.Document as Typst markup.
package typst

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dgallion1/typstgest/internal/doctree"
	"github.com/dgallion1/typstgest/internal/latexmath"
)

// Render produces Typst source for doc. It fails only when a math
// expression has no Typst form.
func Render(doc *doctree.Document) (string, error) {
	r := &renderer{}
	if err := r.document(doc); err != nil {
		return "", err
	}
	return r.out.String(), nil
}

// Math renders a single expression with its delimiters: "$x$" inline or
// "$ x $" for display.
func Math(e latexmath.Expr, display bool) (string, error) {
	s, err := latexmath.Render(e)
	if err != nil {
		return "", err
	}
	if display {
		return "$ " + s + " $", nil
	}
	return "$" + s + "$", nil
}

type renderer struct {
	out strings.Builder
}

func (r *renderer) document(doc *doctree.Document) error {
	meta := doc.Metadata
	if meta.Title != "" {
		fmt.Fprintf(&r.out, "#set document(title: %s)\n", quote(meta.Title))
	}
	if meta.Author != "" {
		fmt.Fprintf(&r.out, "#set document(author: %s)\n", quote(meta.Author))
	}
	if meta.Title != "" || meta.Author != "" {
		r.out.WriteByte('\n')
	}
	return r.blocks(doc.Blocks)
}

// blocks writes each block followed by a blank line, except the last.
func (r *renderer) blocks(blocks []doctree.Block) error {
	for i, b := range blocks {
		if err := r.block(b); err != nil {
			return err
		}
		if i < len(blocks)-1 {
			r.out.WriteByte('\n')
		}
	}
	return nil
}

func (r *renderer) block(b doctree.Block) error {
	switch x := b.(type) {
	case *doctree.Heading:
		r.out.WriteString(strings.Repeat("=", max(x.Level, 1)))
		r.out.WriteByte(' ')
		if err := r.inlines(x.Inlines); err != nil {
			return err
		}
		r.out.WriteByte('\n')

	case *doctree.Paragraph:
		if err := r.inlines(x.Inlines); err != nil {
			return err
		}
		r.out.WriteByte('\n')

	case *doctree.List:
		return r.list(x)

	case *doctree.CodeBlock:
		r.out.WriteString("```")
		r.out.WriteString(x.Lang)
		r.out.WriteByte('\n')
		r.out.WriteString(x.Code)
		if !strings.HasSuffix(x.Code, "\n") {
			r.out.WriteByte('\n')
		}
		r.out.WriteString("```\n")

	case *doctree.MathBlock:
		return r.mathBlock(x)

	case *doctree.Quote:
		r.out.WriteString("#quote(block: true)[\n")
		if err := r.blocks(x.Blocks); err != nil {
			return err
		}
		r.out.WriteString("]\n")

	case *doctree.Table:
		return r.table(x)

	case *doctree.HorizontalRule:
		r.out.WriteString("#line(length: 100%)\n")

	case *doctree.PageBreak:
		r.out.WriteString("#pagebreak()\n")

	default:
		return fmt.Errorf("unknown block %T", b)
	}
	return nil
}

func (r *renderer) mathBlock(m *doctree.MathBlock) error {
	s, err := latexmath.Render(m.Expr)
	if err != nil {
		return fmt.Errorf("render math %q: %w", m.Source, err)
	}
	if m.Numbered {
		r.out.WriteString(`#math.equation(block: true, numbering: "(1)", $ `)
		r.out.WriteString(s)
		r.out.WriteString(" $)")
	} else {
		r.out.WriteString("$ ")
		r.out.WriteString(s)
		r.out.WriteString(" $")
	}
	if m.Label != "" {
		r.out.WriteString(" <")
		r.out.WriteString(m.Label)
		r.out.WriteByte('>')
	}
	r.out.WriteByte('\n')
	return nil
}

// list writes one marker per item. An item's first paragraph shares the
// marker line; further blocks are indented beneath it.
func (r *renderer) list(l *doctree.List) error {
	for i, item := range l.Items {
		switch l.Kind {
		case doctree.Ordered:
			r.out.WriteString("+ ")
		case doctree.Description:
			r.out.WriteString("/ ")
			if i < len(l.Terms) {
				if err := r.inlines(l.Terms[i]); err != nil {
					return err
				}
			}
			r.out.WriteString(": ")
		default:
			r.out.WriteString("- ")
		}

		rest := item
		if len(item) > 0 {
			if p, ok := item[0].(*doctree.Paragraph); ok {
				if err := r.inlines(p.Inlines); err != nil {
					return err
				}
				rest = item[1:]
			}
		}
		r.out.WriteByte('\n')
		if len(rest) == 0 {
			continue
		}

		sub := &renderer{}
		if err := sub.blocks(rest); err != nil {
			return err
		}
		r.out.WriteString(indent(sub.out.String(), "  "))
	}
	return nil
}

func (r *renderer) table(t *doctree.Table) error {
	columns := len(t.Header)
	for _, row := range t.Rows {
		columns = max(columns, len(row))
	}
	if columns == 0 {
		return nil
	}

	fmt.Fprintf(&r.out, "#table(\n  columns: %d,\n", columns)
	if len(t.Header) > 0 {
		r.out.WriteString("  table.header(")
		if err := r.cells(t.Header, columns); err != nil {
			return err
		}
		r.out.WriteString("),\n")
	}
	for _, row := range t.Rows {
		r.out.WriteString("  ")
		if err := r.cells(row, columns); err != nil {
			return err
		}
		r.out.WriteString(",\n")
	}
	r.out.WriteString(")\n")
	return nil
}

// cells writes a row padded with empty cells to the column count.
func (r *renderer) cells(row []doctree.Cell, columns int) error {
	for i := range columns {
		if i > 0 {
			r.out.WriteString(", ")
		}
		r.out.WriteByte('[')
		if i < len(row) {
			if err := r.inlines(row[i]); err != nil {
				return err
			}
		}
		r.out.WriteByte(']')
	}
	return nil
}

func (r *renderer) inlines(inlines []doctree.Inline) error {
	for _, in := range inlines {
		if err := r.inline(in); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) inline(in doctree.Inline) error {
	switch x := in.(type) {
	case *doctree.Text:
		r.out.WriteString(Escape(x.Value))

	case *doctree.Raw:
		r.out.WriteString(x.Value)

	case *doctree.Formatted:
		return r.formatted(x)

	case *doctree.Code:
		if strings.Contains(x.Value, "`") {
			r.out.WriteString("#raw(")
			r.out.WriteString(quote(x.Value))
			r.out.WriteByte(')')
			return nil
		}
		r.out.WriteByte('`')
		r.out.WriteString(x.Value)
		r.out.WriteByte('`')

	case *doctree.Link:
		r.out.WriteString("#link(")
		r.out.WriteString(quote(x.URL))
		r.out.WriteString(")[")
		if err := r.inlines(x.Inlines); err != nil {
			return err
		}
		r.out.WriteByte(']')

	case *doctree.MathInline:
		s, err := latexmath.Render(x.Expr)
		if err != nil {
			return fmt.Errorf("render math %q: %w", x.Source, err)
		}
		r.out.WriteByte('$')
		r.out.WriteString(s)
		r.out.WriteByte('$')

	case *doctree.Ref:
		r.out.WriteByte('@')
		r.out.WriteString(x.Label)

	case *doctree.LineBreak:
		r.out.WriteString(" \\\n")

	default:
		return fmt.Errorf("unknown inline %T", in)
	}
	return nil
}

func (r *renderer) formatted(f *doctree.Formatted) error {
	var open, close string
	switch f.Style {
	case doctree.Bold:
		open, close = "*", "*"
	case doctree.Italic:
		open, close = "_", "_"
	case doctree.Underline:
		open, close = "#underline[", "]"
	case doctree.Monospace:
		open, close = "`", "`"
	case doctree.Strikethrough:
		open, close = "#strike[", "]"
	default:
		return fmt.Errorf("unknown style %d", f.Style)
	}
	r.out.WriteString(open)
	if f.Style == doctree.Monospace {
		// Raw text takes no markup, so the content goes in unescaped.
		r.out.WriteString(doctree.PlainText(f.Inlines))
	} else if err := r.inlines(f.Inlines); err != nil {
		return err
	}
	r.out.WriteString(close)
	return nil
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	"#", `\#`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"@", `\@`,
	"<", `\<`,
	"$", `\$`,
)

// Escape backslash-escapes the characters that start Typst markup.
func Escape(s string) string {
	return escaper.Replace(s)
}

// quote returns s as a Typst string literal.
func quote(s string) string {
	return strconv.Quote(s)
}

func indent(s, prefix string) string {
	lines := strings.SplitAfter(s, "\n")
	var b strings.Builder
	for _, line := range lines {
		if line == "" {
			continue
		}
		if line != "\n" {
			b.WriteString(prefix)
		}
		b.WriteString(line)
	}
	return b.String()
}
