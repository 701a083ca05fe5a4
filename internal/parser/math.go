package parser

import (
	"fmt"
	"strings"

	"github.com/dgallion1/typstgest/internal/doctree"
	"github.com/dgallion1/typstgest/internal/latexmath"
)

// MathError reports a math span that did not parse in strict mode.
type MathError struct {
	Source string
	Err    error
}

func (e *MathError) Error() string {
	return fmt.Sprintf("math %q: %v", e.Source, e.Err)
}

func (e *MathError) Unwrap() error { return e.Err }

type spanKind int

const (
	spanText spanKind = iota
	spanInline
	spanDisplay
)

// span is one piece of prose. For math spans Body is the interior and Raw is
// the span as written, delimiters included.
type span struct {
	Kind spanKind
	Body string
	Raw  string
}

// splitMath cuts prose into text and math spans. Recognized delimiters are
// $..$, $$..$$, \(..\) and \[..\]. A $ pair is only math when the opener is
// not followed by whitespace, the closer is not escaped or followed by a
// digit, and no newline sits between them. \$ is a literal dollar sign.
func splitMath(s string) []span {
	var out []span
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			out = append(out, span{Kind: spanText, Body: text.String(), Raw: text.String()})
			text.Reset()
		}
	}
	emit := func(kind spanKind, body, raw string) {
		flush()
		out = append(out, span{Kind: kind, Body: body, Raw: raw})
	}

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s) && s[i+1] == '$':
			text.WriteByte('$')
			i += 2
			continue

		case c == '\\' && i+1 < len(s) && (s[i+1] == '(' || s[i+1] == '['):
			closer, kind := `\)`, spanInline
			if s[i+1] == '[' {
				closer, kind = `\]`, spanDisplay
			}
			if end := strings.Index(s[i+2:], closer); end >= 0 {
				stop := i + 2 + end + 2
				emit(kind, s[i+2:i+2+end], s[i:stop])
				i = stop
				continue
			}

		case c == '$' && strings.HasPrefix(s[i:], "$$"):
			if end := strings.Index(s[i+2:], "$$"); end >= 0 && strings.TrimSpace(s[i+2:i+2+end]) != "" {
				stop := i + 2 + end + 2
				emit(spanDisplay, s[i+2:i+2+end], s[i:stop])
				i = stop
				continue
			}

		case c == '$':
			if end, ok := inlineDollarEnd(s, i); ok {
				emit(spanInline, s[i+1:end], s[i:end+1])
				i = end + 1
				continue
			}
		}
		text.WriteByte(c)
		i++
	}
	flush()
	return out
}

// inlineDollarEnd returns the index of the $ closing the span opened at open.
func inlineDollarEnd(s string, open int) (int, bool) {
	if open+1 >= len(s) || isBlank(s[open+1]) || s[open+1] == '$' {
		return 0, false
	}
	for j := open + 1; j < len(s); j++ {
		switch s[j] {
		case '\n':
			return 0, false
		case '\\':
			j++
		case '$':
			if j+1 < len(s) && s[j+1] >= '0' && s[j+1] <= '9' {
				continue
			}
			return j, true
		}
	}
	return 0, false
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// mathBuilder turns math source into tree nodes, degrading to literal text
// unless Strict is set.
type mathBuilder struct {
	opts Options
}

func (m mathBuilder) parse(src string) (latexmath.Expr, error) {
	return latexmath.ParseWithOptions(src, latexmath.ParseOptions{MaxDepth: m.opts.MaxMathDepth})
}

// inline builds inline math. raw is what to show when src does not parse.
func (m mathBuilder) inline(src, raw string) (doctree.Inline, error) {
	e, err := m.parse(src)
	if err != nil {
		if m.opts.Strict {
			return nil, &MathError{Source: src, Err: err}
		}
		return &doctree.Raw{Value: raw}, nil
	}
	return &doctree.MathInline{Expr: e, Source: src}, nil
}

// display builds display math. A failure becomes a paragraph holding raw.
func (m mathBuilder) display(src, raw string) (doctree.Block, error) {
	e, err := m.parse(src)
	if err != nil {
		if m.opts.Strict {
			return nil, &MathError{Source: src, Err: err}
		}
		return &doctree.Paragraph{Inlines: []doctree.Inline{&doctree.Raw{Value: raw}}}, nil
	}
	return &doctree.MathBlock{Expr: e, Source: src}, nil
}

// displayFallback is the literal text for display math that did not parse.
func displayFallback(sp span) string {
	if strings.HasPrefix(sp.Raw, "$$") {
		return "$$ " + sp.Body + " $$"
	}
	return sp.Raw
}

// flow accumulates inlines into paragraphs, cutting the current paragraph
// whenever a block such as display math arrives. With inlineOnly set, display
// math stays inline and other blocks are dropped.
type flow struct {
	blocks     []doctree.Block
	cur        []doctree.Inline
	inlineOnly bool
}

func (f *flow) add(in ...doctree.Inline) {
	f.cur = append(f.cur, in...)
}

func (f *flow) text(s string) {
	if s == "" {
		return
	}
	if n := len(f.cur); n > 0 {
		if t, ok := f.cur[n-1].(*doctree.Text); ok {
			t.Value += s
			return
		}
	}
	f.cur = append(f.cur, &doctree.Text{Value: s})
}

func (f *flow) block(b doctree.Block) {
	if f.inlineOnly {
		if mb, ok := b.(*doctree.MathBlock); ok {
			f.add(&doctree.MathInline{Expr: mb.Expr, Source: mb.Source})
		} else if p, ok := b.(*doctree.Paragraph); ok {
			f.add(p.Inlines...)
		}
		return
	}
	f.flush()
	f.blocks = append(f.blocks, b)
}

// flush closes the current paragraph unless it holds only whitespace.
func (f *flow) flush() {
	if f.inlineOnly {
		return
	}
	cur := trimInlines(f.cur)
	f.cur = nil
	if len(cur) > 0 {
		f.blocks = append(f.blocks, &doctree.Paragraph{Inlines: cur})
	}
}

// inlines returns everything gathered so far as one inline run.
func (f *flow) inlines() []doctree.Inline {
	return trimInlines(f.cur)
}

// prose feeds text through splitMath into f.
func (m mathBuilder) prose(f *flow, s string) error {
	for _, sp := range splitMath(s) {
		switch sp.Kind {
		case spanText:
			f.text(sp.Body)
		case spanInline:
			in, err := m.inline(sp.Body, sp.Raw)
			if err != nil {
				return err
			}
			f.add(in)
		case spanDisplay:
			if f.inlineOnly {
				in, err := m.inline(sp.Body, sp.Raw)
				if err != nil {
					return err
				}
				f.add(in)
				continue
			}
			b, err := m.display(sp.Body, displayFallback(sp))
			if err != nil {
				return err
			}
			f.block(b)
		}
	}
	return nil
}

// proseBlocks converts one paragraph of plain text into blocks.
func (m mathBuilder) proseBlocks(s string) ([]doctree.Block, error) {
	f := &flow{}
	if err := m.prose(f, s); err != nil {
		return nil, err
	}
	f.flush()
	return f.blocks, nil
}

// proseInlines converts text into a single inline run.
func (m mathBuilder) proseInlines(s string) ([]doctree.Inline, error) {
	f := &flow{inlineOnly: true}
	if err := m.prose(f, s); err != nil {
		return nil, err
	}
	return f.inlines(), nil
}

// trimInlines drops leading and trailing whitespace from the outer text nodes
// and returns nil when nothing else is left.
func trimInlines(in []doctree.Inline) []doctree.Inline {
	for len(in) > 0 {
		t, ok := in[0].(*doctree.Text)
		if !ok {
			break
		}
		t.Value = strings.TrimLeft(t.Value, " \t\r\n")
		if t.Value != "" {
			break
		}
		in = in[1:]
	}
	for len(in) > 0 {
		t, ok := in[len(in)-1].(*doctree.Text)
		if !ok {
			break
		}
		t.Value = strings.TrimRight(t.Value, " \t\r\n")
		if t.Value != "" {
			break
		}
		in = in[:len(in)-1]
	}
	if len(in) == 0 {
		return nil
	}
	return in
}
