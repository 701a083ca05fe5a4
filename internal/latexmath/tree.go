package latexmath

// Expr is a node in a parsed math expression. The set of node types is closed;
// every implementation lives in this file.
type Expr interface {
	expr()
}

// Symbol is an atomic token: a letter, a digit run, a translated command name or
// a single operator character.
type Symbol struct {
	Text string
}

// Command is a named command with zero or more arguments. Unrecognized LaTeX
// commands end up here with no arguments.
type Command struct {
	Name string
	Args []Expr
}

type Subscript struct {
	Base Expr
	Sub  Expr
}

type Superscript struct {
	Base Expr
	Sup  Expr
}

// SubSup is a base with both scripts attached at once.
type SubSup struct {
	Base Expr
	Sub  Expr
	Sup  Expr
}

type Fraction struct {
	Num Expr
	Den Expr
}

// Sqrt is a square root when Degree is nil and an nth root otherwise.
type Sqrt struct {
	Degree   Expr
	Radicand Expr
}

// Group is a juxtaposed sequence of expressions. It is only empty when it
// stands for empty input or empty braces.
type Group struct {
	Items []Expr
}

// Binary is one infix application of + - = < or >.
type Binary struct {
	Op    string
	Left  Expr
	Right Expr
}

// Operator is a big operator (sum, integral, limit...) with optional limits.
type Operator struct {
	Name  string
	Lower Expr
	Upper Expr
}

// Delimited is content between a \left and \right marker pair. Markers are
// already in output form; an invisible delimiter is the empty string.
type Delimited struct {
	Left    string
	Content Expr
	Right   string
}

// Environment is a \begin{name}...\end{name} block. Rows may have different
// numbers of cells.
type Environment struct {
	Name string
	Rows [][]Expr
}

// Text is literal text inside math mode.
type Text struct {
	Value string
}

type Space struct{}

func (*Symbol) expr()      {}
func (*Command) expr()     {}
func (*Subscript) expr()   {}
func (*Superscript) expr() {}
func (*SubSup) expr()      {}
func (*Fraction) expr()    {}
func (*Sqrt) expr()        {}
func (*Group) expr()       {}
func (*Binary) expr()      {}
func (*Operator) expr()    {}
func (*Delimited) expr()   {}
func (*Environment) expr() {}
func (*Text) expr()        {}
func (*Space) expr()       {}

// Sym returns a Symbol node.
func Sym(text string) *Symbol { return &Symbol{Text: text} }

// Grp returns a Group of the given items.
func Grp(items ...Expr) *Group { return &Group{Items: items} }

// Frac returns a Fraction node.
func Frac(num, den Expr) *Fraction { return &Fraction{Num: num, Den: den} }

// Root returns a Sqrt node; degree may be nil.
func Root(degree, radicand Expr) *Sqrt { return &Sqrt{Degree: degree, Radicand: radicand} }

// Bin returns a Binary node.
func Bin(op string, left, right Expr) *Binary { return &Binary{Op: op, Left: left, Right: right} }

// IsSimple reports whether e is a bare symbol or literal text.
func IsSimple(e Expr) bool {
	switch e.(type) {
	case *Symbol, *Text:
		return true
	}
	return false
}

// Equal reports whether a and b are structurally identical trees.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *Symbol:
		y, ok := b.(*Symbol)
		return ok && x.Text == y.Text
	case *Command:
		y, ok := b.(*Command)
		return ok && x.Name == y.Name && equalList(x.Args, y.Args)
	case *Subscript:
		y, ok := b.(*Subscript)
		return ok && Equal(x.Base, y.Base) && Equal(x.Sub, y.Sub)
	case *Superscript:
		y, ok := b.(*Superscript)
		return ok && Equal(x.Base, y.Base) && Equal(x.Sup, y.Sup)
	case *SubSup:
		y, ok := b.(*SubSup)
		return ok && Equal(x.Base, y.Base) && Equal(x.Sub, y.Sub) && Equal(x.Sup, y.Sup)
	case *Fraction:
		y, ok := b.(*Fraction)
		return ok && Equal(x.Num, y.Num) && Equal(x.Den, y.Den)
	case *Sqrt:
		y, ok := b.(*Sqrt)
		return ok && Equal(x.Degree, y.Degree) && Equal(x.Radicand, y.Radicand)
	case *Group:
		y, ok := b.(*Group)
		return ok && equalList(x.Items, y.Items)
	case *Binary:
		y, ok := b.(*Binary)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *Operator:
		y, ok := b.(*Operator)
		return ok && x.Name == y.Name && Equal(x.Lower, y.Lower) && Equal(x.Upper, y.Upper)
	case *Delimited:
		y, ok := b.(*Delimited)
		return ok && x.Left == y.Left && x.Right == y.Right && Equal(x.Content, y.Content)
	case *Environment:
		y, ok := b.(*Environment)
		if !ok || x.Name != y.Name || len(x.Rows) != len(y.Rows) {
			return false
		}
		for i := range x.Rows {
			if !equalList(x.Rows[i], y.Rows[i]) {
				return false
			}
		}
		return true
	case *Text:
		y, ok := b.(*Text)
		return ok && x.Value == y.Value
	case *Space:
		_, ok := b.(*Space)
		return ok
	}
	return false
}

func equalList(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
