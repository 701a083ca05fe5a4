package latexmath

import (
	"fmt"
	"strings"
)

// DefaultMaxDepth is the nesting limit used when ParseOptions.MaxDepth is unset.
const DefaultMaxDepth = 200

// operatorChars are the punctuation characters that parse as one Symbol each.
const operatorChars = `()[]|*/!,.:;'"&`

// infixChars separate terms of an expression.
const infixChars = "+-=<>"

// ParseOptions tunes Parse.
type ParseOptions struct {
	// MaxDepth bounds the nesting of groups, scripts, commands and
	// environments. Zero means DefaultMaxDepth.
	MaxDepth int
}

// Parse parses LaTeX math-mode source (without the surrounding $ markers) into
// an expression tree. Blank input yields an empty Group. Errors are
// *InvalidMathError with a byte offset into text.
func Parse(text string) (Expr, error) {
	return ParseWithOptions(text, ParseOptions{})
}

// ParseWithOptions is Parse with explicit limits.
func ParseWithOptions(text string, opts ParseOptions) (Expr, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	p := &parser{src: text, end: len(text), maxDepth: maxDepth}
	return p.parseAll()
}

type parser struct {
	src      string
	pos      int
	end      int
	depth    int
	maxDepth int
	// closers is a stack of tokens that end the innermost open construct:
	// "]" for a root degree, "}" for a brace group, `\right` for \left.
	closers []string
}

func (p *parser) errorf(pos int, format string, args ...any) error {
	return &InvalidMathError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) peek() byte {
	if p.pos >= p.end {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for p.pos < p.end && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > p.maxDepth {
		return p.errorf(p.pos, "expression nested too deeply (limit %d)", p.maxDepth)
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) push(closer string) { p.closers = append(p.closers, closer) }

func (p *parser) pop() { p.closers = p.closers[:len(p.closers)-1] }

func (p *parser) closing(closer string) bool {
	return len(p.closers) > 0 && p.closers[len(p.closers)-1] == closer
}

// parseAll parses the whole of src[pos:end], ignoring surrounding whitespace.
func (p *parser) parseAll() (Expr, error) {
	p.skipSpace()
	for p.end > p.pos && isSpace(p.src[p.end-1]) {
		p.end--
	}
	if p.pos == p.end {
		return Grp(), nil
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < p.end {
		return nil, p.errorf(p.pos, "unexpected content: %s", p.src[p.pos:p.end])
	}
	return e, nil
}

// parseExpr parses Term (infix Term)*, folding left into Binary nodes.
func (p *parser) parseExpr() (Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		save := p.pos
		p.skipSpace()
		c := p.peek()
		if c == 0 || strings.IndexByte(infixChars, c) < 0 {
			p.pos = save
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = Bin(string(c), left, right)
	}
}

// parseTerm parses an optional sign followed by one or more juxtaposed atoms.
func (p *parser) parseTerm() (Expr, error) {
	p.skipSpace()
	var sign string
	if c := p.peek(); c == '+' || c == '-' {
		sign = string(c)
		p.pos++
		p.skipSpace()
	}

	var atoms []Expr
	for {
		save := p.pos
		p.skipSpace()
		atom, ok, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		if !ok {
			p.pos = save
			break
		}
		atoms = append(atoms, atom)
	}
	if len(atoms) == 0 {
		if p.pos >= p.end {
			return nil, p.errorf(p.pos, "unexpected end of input")
		}
		return nil, p.errorf(p.pos, "expected expression, found %q", p.src[p.pos])
	}

	var term Expr = atoms[0]
	if len(atoms) > 1 {
		term = Grp(atoms...)
	}
	if sign != "" {
		return Grp(Sym(sign), term), nil
	}
	return term, nil
}

// parseAtom parses a base and any scripts attached to it. A `_` immediately
// followed by `^` yields SubSup; any other sequence of markers nests, each
// wrapping the atom built so far.
func (p *parser) parseAtom() (Expr, bool, error) {
	base, ok, err := p.parseBase()
	if err != nil || !ok {
		return nil, ok, err
	}
	expr := base
	for {
		save := p.pos
		p.skipSpace()
		switch p.peek() {
		case '_':
			p.pos++
			sub, err := p.parseScriptArg()
			if err != nil {
				return nil, false, err
			}
			afterSub := p.pos
			p.skipSpace()
			if p.peek() == '^' {
				p.pos++
				sup, err := p.parseScriptArg()
				if err != nil {
					return nil, false, err
				}
				expr = &SubSup{Base: expr, Sub: sub, Sup: sup}
				continue
			}
			p.pos = afterSub
			expr = &Subscript{Base: expr, Sub: sub}
		case '^':
			p.pos++
			sup, err := p.parseScriptArg()
			if err != nil {
				return nil, false, err
			}
			expr = &Superscript{Base: expr, Sup: sup}
		default:
			p.pos = save
			return expr, true, nil
		}
	}
}

// parseBase parses one base element. ok is false when the input at pos cannot
// start an atom; nothing is consumed in that case.
func (p *parser) parseBase() (Expr, bool, error) {
	c := p.peek()
	switch {
	case c == 0:
		return nil, false, nil
	case c == '\\':
		return p.parseCommand()
	case c == '{':
		e, err := p.parseBraced()
		return e, err == nil, err
	case isDigit(c):
		return p.parseNumber(), true, nil
	case isLetter(c):
		p.pos++
		return Sym(string(c)), true, nil
	case c == ']' && p.closing("]"):
		return nil, false, nil
	case strings.IndexByte(operatorChars, c) >= 0:
		p.pos++
		return Sym(string(c)), true, nil
	}
	return nil, false, nil
}

func (p *parser) parseNumber() Expr {
	start := p.pos
	for p.pos < p.end && isDigit(p.src[p.pos]) {
		p.pos++
	}
	if p.pos+1 < p.end && p.src[p.pos] == '.' && isDigit(p.src[p.pos+1]) {
		p.pos++
		for p.pos < p.end && isDigit(p.src[p.pos]) {
			p.pos++
		}
	}
	return Sym(p.src[start:p.pos])
}

// parseBraced parses `{...}` as a full expression. Empty braces yield an
// empty Group.
func (p *parser) parseBraced() (Expr, error) {
	open := p.pos
	p.pos++
	p.push("}")
	defer p.pop()

	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return Grp(), nil
	}
	if p.pos >= p.end {
		return nil, p.errorf(open, "unclosed '{'")
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	switch {
	case p.pos >= p.end:
		return nil, p.errorf(open, "unclosed '{'")
	case p.peek() != '}':
		return nil, p.errorf(p.pos, "expected '}', found %q", p.peek())
	}
	p.pos++
	return e, nil
}

// parseScriptArg parses the argument of `_` or `^`: a braced group, a
// command, a single digit or a run of letters.
func (p *parser) parseScriptArg() (Expr, error) {
	p.skipSpace()
	c := p.peek()
	switch {
	case c == '{':
		return p.parseBraced()
	case c == '\\':
		return p.parseCommandArg()
	case isDigit(c):
		p.pos++
		return Sym(string(c)), nil
	case isLetter(c):
		start := p.pos
		for p.pos < p.end && isLetter(p.src[p.pos]) {
			p.pos++
		}
		return Sym(p.src[start:p.pos]), nil
	}
	return nil, p.errorf(p.pos, "expected script argument")
}

// parseArg parses a command argument: a braced group, a command, or a single
// letter or digit.
func (p *parser) parseArg() (Expr, error) {
	p.skipSpace()
	c := p.peek()
	switch {
	case c == '{':
		return p.parseBraced()
	case c == '\\':
		return p.parseCommandArg()
	case isDigit(c), isLetter(c):
		p.pos++
		return Sym(string(c)), nil
	}
	return nil, p.errorf(p.pos, "expected argument")
}

func (p *parser) parseCommandArg() (Expr, error) {
	start := p.pos
	e, ok, err := p.parseCommand()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, p.errorf(start, "expected argument")
	}
	return e, nil
}

// readName reads a run of ASCII letters.
func (p *parser) readName() string {
	start := p.pos
	for p.pos < p.end && isLetter(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

// parseCommand parses a backslash command at pos.
func (p *parser) parseCommand() (Expr, bool, error) {
	if err := p.enter(); err != nil {
		return nil, false, err
	}
	defer p.leave()

	start := p.pos
	p.pos++
	if p.pos >= p.end {
		return nil, false, p.errorf(start, "trailing backslash")
	}

	c := p.src[p.pos]
	if !isLetter(c) {
		p.pos++
		switch c {
		case ',', ':', ';', '!', ' ':
			return &Space{}, true, nil
		case '\\':
			return Sym(`\`), true, nil
		}
		if s, ok := escapes[c]; ok {
			return Sym(s), true, nil
		}
		return nil, false, p.errorf(start, "unknown command \\%c", c)
	}

	name := p.readName()
	cmd, ok := lookupCommand(name)
	if !ok {
		return &Command{Name: name}, true, nil
	}

	switch cmd.kind {
	case cmdSymbol:
		return Sym(cmd.typst), true, nil

	case cmdFrac:
		num, err := p.parseArg()
		if err != nil {
			return nil, false, err
		}
		den, err := p.parseArg()
		if err != nil {
			return nil, false, err
		}
		return Frac(num, den), true, nil

	case cmdSqrt:
		var degree Expr
		p.skipSpace()
		if p.peek() == '[' {
			d, err := p.parseDegree()
			if err != nil {
				return nil, false, err
			}
			degree = d
		}
		radicand, err := p.parseArg()
		if err != nil {
			return nil, false, err
		}
		return Root(degree, radicand), true, nil

	case cmdStyle:
		arg, err := p.parseArg()
		if err != nil {
			return nil, false, err
		}
		return &Command{Name: cmd.typst, Args: []Expr{arg}}, true, nil

	case cmdMathbb:
		arg, err := p.parseArg()
		if err != nil {
			return nil, false, err
		}
		if s, ok := arg.(*Symbol); ok {
			if bb, ok := bbLetters[s.Text]; ok {
				return Sym(bb), true, nil
			}
		}
		return &Command{Name: cmd.typst, Args: []Expr{arg}}, true, nil

	case cmdBrace:
		body, err := p.parseArg()
		if err != nil {
			return nil, false, err
		}
		args := []Expr{body}
		save := p.pos
		p.skipSpace()
		if p.peek() == cmd.annot {
			p.pos++
			ann, err := p.parseScriptArg()
			if err != nil {
				return nil, false, err
			}
			args = append(args, ann)
		} else {
			p.pos = save
		}
		return &Command{Name: cmd.typst, Args: args}, true, nil

	case cmdOperatorName:
		if p.peek() == '*' {
			p.pos++
		}
		text, err := p.readRawBraced(name)
		if err != nil {
			return nil, false, err
		}
		return &Command{Name: cmd.typst, Args: []Expr{&Text{Value: text}}}, true, nil

	case cmdText:
		text, err := p.readRawBraced(name)
		if err != nil {
			return nil, false, err
		}
		return &Text{Value: text}, true, nil

	case cmdOperator:
		return p.parseOperator(cmd.typst)

	case cmdBegin:
		e, err := p.parseEnvironment(start)
		return e, err == nil, err

	case cmdEnd:
		return nil, false, p.errorf(start, "\\end without matching \\begin")

	case cmdLeft:
		e, err := p.parseDelimited(start)
		return e, err == nil, err

	case cmdRight:
		if p.closing(`\right`) {
			p.pos = start
			return nil, false, nil
		}
		return nil, false, p.errorf(start, "\\right without matching \\left")

	case cmdSpace:
		return &Space{}, true, nil

	case cmdWideSpace:
		return Grp(&Space{}, &Space{}), true, nil

	case cmdSizing:
		d, err := p.parseDelimiter(name)
		if err != nil {
			return nil, false, err
		}
		return Sym(d), true, nil
	}
	return &Command{Name: name}, true, nil
}

// parseDegree parses the `[n]` of \sqrt[n]. An empty degree is treated as
// absent.
func (p *parser) parseDegree() (Expr, error) {
	open := p.pos
	p.pos++
	p.push("]")
	defer p.pop()

	p.skipSpace()
	if p.peek() == ']' {
		p.pos++
		return nil, nil
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peek() != ']' {
		return nil, p.errorf(open, "unclosed '[' in \\sqrt")
	}
	p.pos++
	return e, nil
}

// readRawBraced returns the text between a brace and its match without
// parsing it.
func (p *parser) readRawBraced(name string) (string, error) {
	p.skipSpace()
	if p.peek() != '{' {
		return "", p.errorf(p.pos, "expected '{' after \\%s", name)
	}
	open := p.pos
	depth := 0
	for i := p.pos; i < p.end; i++ {
		switch p.src[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				text := p.src[open+1 : i]
				p.pos = i + 1
				return text, nil
			}
		}
	}
	return "", p.errorf(open, "unterminated \\%s", name)
}

// parseOperator parses the optional limits of a big operator. Limits may come
// in either order; \limits and \nolimits are ignored.
func (p *parser) parseOperator(name string) (Expr, bool, error) {
	op := &Operator{Name: name}
	save := p.pos
	p.skipSpace()
	if !p.skipWord(`\limits`) && !p.skipWord(`\nolimits`) {
		p.pos = save
	}
	for {
		save := p.pos
		p.skipSpace()
		switch c := p.peek(); {
		case c == '_' && op.Lower == nil:
			p.pos++
			lower, err := p.parseScriptArg()
			if err != nil {
				return nil, false, err
			}
			op.Lower = lower
		case c == '^' && op.Upper == nil:
			p.pos++
			upper, err := p.parseScriptArg()
			if err != nil {
				return nil, false, err
			}
			op.Upper = upper
		default:
			p.pos = save
			return op, true, nil
		}
	}
}

// skipWord consumes the command word if it is next and not followed by
// another letter.
func (p *parser) skipWord(word string) bool {
	rest := p.src[p.pos:p.end]
	if !strings.HasPrefix(rest, word) {
		return false
	}
	if len(rest) > len(word) && isLetter(rest[len(word)]) {
		return false
	}
	p.pos += len(word)
	return true
}

// parseDelimited parses the body of \left<d> ... \right<d>.
func (p *parser) parseDelimited(start int) (Expr, error) {
	left, err := p.parseDelimiter("left")
	if err != nil {
		return nil, err
	}

	p.push(`\right`)
	var content Expr
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:p.end], `\right`) && !p.atRightArrow() {
		content = Grp()
	} else {
		content, err = p.parseExpr()
	}
	p.pop()
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	if !p.skipWord(`\right`) {
		return nil, p.errorf(start, "\\left without matching \\right")
	}
	right, err := p.parseDelimiter("right")
	if err != nil {
		return nil, err
	}
	return &Delimited{Left: left, Content: content, Right: right}, nil
}

func (p *parser) atRightArrow() bool {
	rest := p.src[p.pos:p.end]
	return len(rest) > len(`\right`) && isLetter(rest[len(`\right`)])
}

// parseDelimiter reads the marker after \left, \right or a sizing command and
// returns it in output form.
func (p *parser) parseDelimiter(after string) (string, error) {
	p.skipSpace()
	c := p.peek()
	switch c {
	case '(', ')', '[', ']', '|', '/':
		p.pos++
		return string(c), nil
	case '<':
		p.pos++
		return "⟨", nil
	case '>':
		p.pos++
		return "⟩", nil
	case '.':
		p.pos++
		return "", nil
	case '\\':
		start := p.pos
		p.pos++
		var name string
		if p.pos < p.end && !isLetter(p.src[p.pos]) {
			name = p.src[p.pos : p.pos+1]
			p.pos++
		} else {
			name = p.readName()
		}
		if d, ok := delimiterNames[name]; ok {
			return d, nil
		}
		return "", p.errorf(start, "unknown delimiter \\%s after \\%s", name, after)
	}
	return "", p.errorf(p.pos, "expected delimiter after \\%s", after)
}

// parseEnvironment parses \begin{name}...\end{name}. The first matching end
// tag closes the environment; same-name nesting is not supported.
func (p *parser) parseEnvironment(start int) (Expr, error) {
	p.skipSpace()
	if p.peek() != '{' {
		return nil, p.errorf(p.pos, "expected '{' after \\begin")
	}
	p.pos++
	nameStart := p.pos
	p.readName()
	if p.peek() == '*' {
		p.pos++
	}
	raw := p.src[nameStart:p.pos]
	if raw == "" || p.peek() != '}' {
		return nil, p.errorf(nameStart, "invalid environment name")
	}
	p.pos++

	endTag := `\end{` + raw + `}`
	idx := strings.Index(p.src[p.pos:p.end], endTag)
	if idx < 0 {
		return nil, p.errorf(start, "unterminated environment %q", raw)
	}
	body := p.src[p.pos : p.pos+idx]
	p.pos += idx + len(endTag)

	name := strings.TrimSuffix(raw, "*")
	if name == "array" {
		body = stripColumnSpec(body)
	}

	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	return &Environment{Name: name, Rows: p.parseRows(body)}, nil
}

// parseRows splits an environment body on `\\` then `&`, skipping empty rows
// and cells, and parses every cell on its own.
func (p *parser) parseRows(body string) [][]Expr {
	var rows [][]Expr
	for _, row := range splitTopLevel(body, `\\`) {
		row = strings.TrimSpace(strings.ReplaceAll(row, `\hline`, ""))
		if row == "" {
			continue
		}
		var cells []Expr
		for _, cell := range splitTopLevel(row, "&") {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			if strings.HasSuffix(cell, ",") {
				cell = strings.TrimSpace(cell[:len(cell)-1])
			}
			cells = append(cells, p.parseCell(cell))
		}
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	}
	return rows
}

// parseCell never fails: a cell that does not parse becomes a literal Symbol,
// except that a leading relation is split off and the rest retried.
func (p *parser) parseCell(cell string) Expr {
	if e, err := p.sub(cell).parseAll(); err == nil {
		return e
	}
	if c := cell[0]; c == '=' || c == '<' || c == '>' {
		if e, err := p.sub(cell[1:]).parseAll(); err == nil {
			return Grp(Sym(string(c)), e)
		}
	}
	return Sym(cell)
}

func (p *parser) sub(text string) *parser {
	return &parser{src: text, end: len(text), depth: p.depth, maxDepth: p.maxDepth}
}

// splitTopLevel splits s on sep, ignoring separators inside braces or nested
// environments and escaped characters.
func splitTopLevel(s, sep string) []string {
	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(s); i++ {
		switch {
		case depth == 0 && strings.HasPrefix(s[i:], sep):
			parts = append(parts, s[last:i])
			i += len(sep) - 1
			last = i + 1
		case s[i] == '\\':
			switch {
			case strings.HasPrefix(s[i:], `\begin{`):
				depth++
			case strings.HasPrefix(s[i:], `\end{`):
				depth--
			}
			i++
		case s[i] == '{':
			depth++
		case s[i] == '}':
			depth--
		}
	}
	return append(parts, s[last:])
}

// stripColumnSpec drops the leading {lcr} argument of an array body.
func stripColumnSpec(body string) string {
	trimmed := strings.TrimLeft(body, " \t\r\n")
	if !strings.HasPrefix(trimmed, "{") {
		return body
	}
	depth := 0
	for i := 0; i < len(trimmed); i++ {
		switch trimmed[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return trimmed[i+1:]
			}
		}
	}
	return body
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
