package latexmath

import (
	"fmt"
	"strings"
)

// maxRenderDepth bounds recursion over trees built by hand rather than by Parse.
const maxRenderDepth = 1000

// matrixDelims holds the mat() prefix for each matrix-like environment.
var matrixDelims = map[string]string{
	"matrix":  "mat(delim: #none, ",
	"array":   "mat(delim: #none, ",
	"pmatrix": "mat(",
	"bmatrix": `mat(delim: "[", `,
	"vmatrix": `mat(delim: "|", `,
	"Vmatrix": `mat(delim: "||", `,
}

// Render produces Typst math source for e, without surrounding $ markers.
// The only failure is an environment with no Typst layout, reported as
// *ConversionError.
func Render(e Expr) (string, error) {
	r := &renderer{}
	if err := r.expr(e); err != nil {
		return "", err
	}
	return r.out.String(), nil
}

type renderer struct {
	out   strings.Builder
	depth int
}

func (r *renderer) expr(e Expr) error {
	r.depth++
	defer func() { r.depth-- }()
	if r.depth > maxRenderDepth {
		return &ConversionError{Msg: fmt.Sprintf("expression nested too deeply (limit %d)", maxRenderDepth)}
	}

	switch x := e.(type) {
	case nil:
		return nil

	case *Symbol:
		r.out.WriteString(x.Text)

	case *Command:
		r.out.WriteString(x.Name)
		if len(x.Args) > 0 {
			r.out.WriteByte('(')
			if err := r.list(x.Args, ", "); err != nil {
				return err
			}
			r.out.WriteByte(')')
		}

	case *Subscript:
		if err := r.expr(x.Base); err != nil {
			return err
		}
		return r.script('_', x.Sub)

	case *Superscript:
		if err := r.expr(x.Base); err != nil {
			return err
		}
		return r.script('^', x.Sup)

	case *SubSup:
		if err := r.expr(x.Base); err != nil {
			return err
		}
		if err := r.script('_', x.Sub); err != nil {
			return err
		}
		return r.script('^', x.Sup)

	case *Fraction:
		if IsSimple(x.Num) && IsSimple(x.Den) {
			if err := r.expr(x.Num); err != nil {
				return err
			}
			r.out.WriteByte('/')
			return r.expr(x.Den)
		}
		r.out.WriteString("frac(")
		if err := r.list([]Expr{x.Num, x.Den}, ", "); err != nil {
			return err
		}
		r.out.WriteByte(')')

	case *Sqrt:
		if x.Degree == nil {
			r.out.WriteString("sqrt(")
			if err := r.expr(x.Radicand); err != nil {
				return err
			}
		} else {
			r.out.WriteString("root(")
			if err := r.list([]Expr{x.Degree, x.Radicand}, ", "); err != nil {
				return err
			}
		}
		r.out.WriteByte(')')

	case *Group:
		for i, item := range x.Items {
			if i > 0 && !(i == 1 && isMinus(x.Items[0])) {
				r.out.WriteByte(' ')
			}
			if err := r.expr(item); err != nil {
				return err
			}
		}

	case *Binary:
		return r.binary(x)

	case *Operator:
		r.out.WriteString(x.Name)
		if x.Lower != nil {
			if err := r.script('_', x.Lower); err != nil {
				return err
			}
		}
		if x.Upper != nil {
			return r.script('^', x.Upper)
		}

	case *Delimited:
		r.out.WriteString(x.Left)
		if err := r.expr(x.Content); err != nil {
			return err
		}
		r.out.WriteString(x.Right)

	case *Environment:
		return r.environment(x)

	case *Text:
		r.out.WriteByte('"')
		r.out.WriteString(quoteText(x.Value))
		r.out.WriteByte('"')

	case *Space:
		r.out.WriteByte(' ')

	default:
		return &ConversionError{Msg: fmt.Sprintf("unknown expression node %T", e)}
	}
	return nil
}

// binary walks the left spine iteratively so long sums do not count against
// the depth limit.
func (r *renderer) binary(b *Binary) error {
	var chain []*Binary
	var cur Expr = b
	for {
		next, ok := cur.(*Binary)
		if !ok {
			break
		}
		chain = append(chain, next)
		cur = next.Left
	}
	if err := r.expr(cur); err != nil {
		return err
	}
	for i := len(chain) - 1; i >= 0; i-- {
		r.out.WriteByte(' ')
		r.out.WriteString(chain[i].Op)
		r.out.WriteByte(' ')
		if err := r.expr(chain[i].Right); err != nil {
			return err
		}
	}
	return nil
}

// script writes a script marker and its argument, parenthesized unless the
// argument is a symbol or a one-item group.
func (r *renderer) script(marker byte, arg Expr) error {
	r.out.WriteByte(marker)
	switch x := arg.(type) {
	case *Symbol:
		return r.expr(x)
	case *Group:
		if len(x.Items) == 1 {
			return r.expr(x.Items[0])
		}
	}
	r.out.WriteByte('(')
	if err := r.expr(arg); err != nil {
		return err
	}
	r.out.WriteByte(')')
	return nil
}

func (r *renderer) list(items []Expr, sep string) error {
	for i, item := range items {
		if i > 0 {
			r.out.WriteString(sep)
		}
		if err := r.expr(item); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) environment(env *Environment) error {
	if prefix, ok := matrixDelims[env.Name]; ok {
		r.out.WriteString(prefix)
		for i, row := range env.Rows {
			if i > 0 {
				r.out.WriteString("; ")
			}
			if err := r.list(row, ", "); err != nil {
				return err
			}
		}
		r.out.WriteByte(')')
		return nil
	}

	switch env.Name {
	case "cases":
		r.out.WriteString("cases(\n")
		for i, row := range env.Rows {
			if i > 0 {
				r.out.WriteString(",\n")
			}
			r.out.WriteString("  ")
			if len(row) == 0 {
				continue
			}
			if err := r.expr(row[0]); err != nil {
				return err
			}
			if len(row) > 1 {
				r.out.WriteString(` "if" `)
				if err := r.list(row[1:], " "); err != nil {
					return err
				}
			}
		}
		r.out.WriteString("\n)")

	case "aligned", "align", "split":
		for i, row := range env.Rows {
			if i > 0 {
				r.out.WriteString(" \\\n  ")
			}
			if err := r.list(row, " &"); err != nil {
				return err
			}
		}

	case "gather":
		for i, row := range env.Rows {
			if i > 0 {
				r.out.WriteString(" \\\n  ")
			}
			if err := r.list(row, ""); err != nil {
				return err
			}
		}

	default:
		return &ConversionError{Msg: "unsupported environment: " + env.Name}
	}
	return nil
}

func isMinus(e Expr) bool {
	s, ok := e.(*Symbol)
	return ok && s.Text == "-"
}

var textQuoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quoteText(s string) string { return textQuoter.Replace(s) }
