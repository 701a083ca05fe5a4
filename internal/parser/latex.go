package parser

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/dgallion1/typstgest/internal/doctree"
)

const (
	beginDocument = `\begin{document}`
	endDocument   = `\end{document}`
)

var sectionLevels = map[string]int{
	"part":          1,
	"chapter":       1,
	"section":       1,
	"subsection":    2,
	"subsubsection": 3,
	"paragraph":     4,
	"subparagraph":  5,
}

// Commands that produce no text. Their arguments are skipped too.
var droppedCommands = map[string]bool{
	"documentclass": true, "usepackage": true, "newcommand": true, "renewcommand": true,
	"providecommand": true, "newenvironment": true, "setlength": true, "setcounter": true,
	"pagestyle": true, "thispagestyle": true, "bibliographystyle": true, "bibliography": true,
	"addbibresource": true, "graphicspath": true, "includegraphics": true, "hypersetup": true,
	"geometry": true, "vspace": true, "hspace": true, "label": true, "index": true,
	"maketitle": true, "tableofcontents": true, "listoffigures": true, "listoftables": true,
	"noindent": true, "centering": true, "raggedright": true, "small": true, "large": true,
	"Large": true, "footnotesize": true, "normalsize": true, "bfseries": true, "itshape": true,
	"today": true, "vfill": true, "hfill": true, "smallskip": true, "medskip": true,
	"bigskip": true, "appendix": true, "frontmatter": true, "mainmatter": true,
	"backmatter": true, "input": true, "include": true, "nonumber": true, "notag": true,
}

var textSymbols = map[string]string{
	"LaTeX":         "LaTeX",
	"TeX":           "TeX",
	"ldots":         "…",
	"dots":          "…",
	"textbackslash": `\`,
	"S":             "§",
	"copyright":     "©",
	"textbar":       "|",
	"textless":      "<",
	"textgreater":   ">",
	"quad":          " ",
	"qquad":         "  ",
}

var pageBreakCommands = map[string]bool{
	"newpage":         true,
	"clearpage":       true,
	"cleardoublepage": true,
	"pagebreak":       true,
}

var (
	labelPattern     = regexp.MustCompile(`\\label\{([^}]*)\}`)
	numberingPattern = regexp.MustCompile(`\\(?:nonumber|notag)\b|\\tag\*?\{[^}]*\}`)
	rulePattern      = regexp.MustCompile(`\\(?:hline|toprule|midrule|bottomrule)\b|\\cline\{[^}]*\}`)
	languagePattern  = regexp.MustCompile(`language\s*=\s*\{?([A-Za-z0-9+#]+)`)
	andPattern       = regexp.MustCompile(`\s*\\and\b\s*`)
)

// LatexParser handles LaTeX documents. Inputs without \begin{document} are
// treated as a bare body.
type LatexParser struct {
	Options
}

func (p *LatexParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	input := stripComments(string(src))

	d := &latexDoc{math: mathBuilder{opts: p.Options}}
	body := input
	if i := strings.Index(input, beginDocument); i >= 0 {
		if _, err := d.metadata(input[:i]); err != nil {
			return nil, fmt.Errorf("parse latex preamble: %w", err)
		}
		body = input[i+len(beginDocument):]
		if j := strings.Index(body, endDocument); j >= 0 {
			body = body[:j]
		}
	}
	if body, err = d.metadata(body); err != nil {
		return nil, fmt.Errorf("parse latex: %w", err)
	}

	blocks, err := d.blocks(body)
	if err != nil {
		return nil, fmt.Errorf("parse latex: %w", err)
	}
	return &doctree.Document{Metadata: d.meta, Blocks: blocks}, nil
}

type latexDoc struct {
	math mathBuilder
	meta doctree.Metadata
}

// metadata removes \title, \author and \date from s, recording the first
// value seen for each.
func (d *latexDoc) metadata(s string) (string, error) {
	fields := []struct {
		name string
		dst  *string
	}{
		{"title", &d.meta.Title},
		{"author", &d.meta.Author},
		{"date", &d.meta.Date},
	}
	for _, field := range fields {
		for {
			start, end, arg, ok := findCommand(s, field.name)
			if !ok {
				break
			}
			s = s[:start] + s[end:]
			if *field.dst != "" {
				continue
			}
			inl, err := d.inlines(andPattern.ReplaceAllString(arg, ", "))
			if err != nil {
				return "", err
			}
			*field.dst = strings.Join(strings.Fields(doctree.PlainText(inl)), " ")
		}
	}
	return s, nil
}

// latexBlocks scans a body, gathering prose into paragraphs until a blank
// line or a block construct.
type latexBlocks struct {
	d    *latexDoc
	out  []doctree.Block
	para strings.Builder
}

func (d *latexDoc) blocks(s string) ([]doctree.Block, error) {
	b := &latexBlocks{d: d}
	for i := 0; i < len(s); {
		var err error
		switch c := s[i]; {
		case c == '\n':
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\r') {
				j++
			}
			if j < len(s) && s[j] == '\n' {
				err = b.flush()
				for j < len(s) && isBlank(s[j]) {
					j++
				}
				i = j
			} else {
				b.para.WriteByte('\n')
				i++
			}

		case c == '$' && strings.HasPrefix(s[i:], "$$"):
			end := strings.Index(s[i+2:], "$$")
			if end < 0 {
				b.para.WriteString("$$")
				i += 2
				break
			}
			body := strings.TrimSpace(s[i+2 : i+2+end])
			var blk doctree.Block
			if blk, err = d.math.display(body, "$$ "+body+" $$"); err == nil {
				err = b.add(blk)
			}
			i += 2 + end + 2

		case c == '$':
			// Inline math is copied whole so nothing inside it is read as a block.
			end := dollarEnd(s, i+1)
			if end < 0 || strings.Contains(s[i:end], "\n\n") {
				b.para.WriteByte(c)
				i++
				break
			}
			b.para.WriteString(s[i : end+1])
			i = end + 1

		case c == '\\':
			i, err = b.command(s, i)

		default:
			b.para.WriteByte(c)
			i++
		}
		if err != nil {
			return nil, err
		}
	}
	if err := b.flush(); err != nil {
		return nil, err
	}
	return b.out, nil
}

func (b *latexBlocks) flush() error {
	text := b.para.String()
	b.para.Reset()
	inl, err := b.d.inlines(text)
	if err != nil {
		return err
	}
	if len(inl) > 0 {
		b.out = append(b.out, &doctree.Paragraph{Inlines: inl})
	}
	return nil
}

func (b *latexBlocks) add(blocks ...doctree.Block) error {
	if err := b.flush(); err != nil {
		return err
	}
	b.out = append(b.out, blocks...)
	return nil
}

// command handles a backslash at s[i] in block context and returns the index
// after whatever it consumed.
func (b *latexBlocks) command(s string, i int) (int, error) {
	if i+1 < len(s) {
		switch s[i+1] {
		case '[':
			if end := strings.Index(s[i+2:], `\]`); end >= 0 {
				stop := i + 2 + end + 2
				blk, err := b.d.math.display(strings.TrimSpace(s[i+2:i+2+end]), s[i:stop])
				if err != nil {
					return 0, err
				}
				return stop, b.add(blk)
			}
		case '(':
			if end := strings.Index(s[i+2:], `\)`); end >= 0 {
				stop := i + 2 + end + 2
				b.para.WriteString(s[i:stop])
				return stop, nil
			}
		}
	}

	name, j := readName(s, i+1)
	switch {
	case name == "":
		stop := min(i+2, len(s))
		b.para.WriteString(s[i:stop])
		return stop, nil
	case name == "begin":
		return b.environment(s, i, j)
	case name == "verb":
		if j < len(s) {
			if k := strings.IndexByte(s[j+1:], s[j]); k >= 0 {
				stop := j + 1 + k + 1
				b.para.WriteString(s[i:stop])
				return stop, nil
			}
		}
	case name == "par":
		return j, b.flush()
	case pageBreakCommands[name]:
		return j, b.add(&doctree.PageBreak{})
	case name == "hrule":
		return j, b.add(&doctree.HorizontalRule{})
	case sectionLevels[name] > 0:
		return b.heading(s, i, j, sectionLevels[name])
	}
	b.para.WriteString(s[i:j])
	return j, nil
}

func (b *latexBlocks) heading(s string, start, j, level int) (int, error) {
	if j < len(s) && s[j] == '*' {
		j++
	}
	k := skipOptional(s, skipSpace(s, j))
	title, next, ok := readGroup(s, k, '{', '}')
	if !ok {
		b.para.WriteString(s[start:j])
		return j, nil
	}
	inl, err := b.d.inlines(title)
	if err != nil {
		return 0, err
	}
	return next, b.add(&doctree.Heading{Level: level, Inlines: inl})
}

func (b *latexBlocks) environment(s string, start, j int) (int, error) {
	name, next, ok := readGroup(s, skipSpace(s, j), '{', '}')
	if !ok {
		b.para.WriteString(s[start:j])
		return j, nil
	}
	contentEnd, after := findEnd(s, name, next)
	blocks, err := b.d.environment(name, s[next:contentEnd], s[start:after])
	if err != nil {
		return 0, err
	}
	return after, b.add(blocks...)
}

// environment converts the body of \begin{name}. raw is the whole
// environment as written.
func (d *latexDoc) environment(name, content, raw string) ([]doctree.Block, error) {
	numbered := !strings.HasSuffix(name, "*")
	switch strings.TrimSuffix(name, "*") {
	case "itemize":
		return d.list(doctree.Unordered, content)
	case "enumerate":
		return d.list(doctree.Ordered, content)
	case "description":
		return d.list(doctree.Description, content)
	case "verbatim", "Verbatim", "lstlisting", "minted":
		return []doctree.Block{latexCode(name, content)}, nil
	case "equation":
		return d.displayMath(content, raw, numbered)
	case "displaymath", "math":
		return d.displayMath(content, raw, false)
	case "align", "eqnarray", "flalign":
		return d.displayMath(`\begin{aligned}`+content+`\end{aligned}`, raw, numbered)
	case "gather", "multline":
		return d.displayMath(`\begin{gather}`+content+`\end{gather}`, raw, numbered)
	case "quote", "quotation", "verse":
		blocks, err := d.blocks(content)
		if err != nil {
			return nil, err
		}
		return []doctree.Block{&doctree.Quote{Blocks: blocks}}, nil
	case "tabular", "tabularx":
		return d.tabular(name, content)
	}
	// Anything else (figure, center, abstract, ...) is transparent.
	return d.blocks(content[skipOptional(content, 0):])
}

func (d *latexDoc) displayMath(src, raw string, numbered bool) ([]doctree.Block, error) {
	var label string
	if m := labelPattern.FindStringSubmatch(src); m != nil {
		label = m[1]
	}
	src = labelPattern.ReplaceAllString(src, "")
	src = numberingPattern.ReplaceAllString(src, "")
	b, err := d.math.display(strings.TrimSpace(src), raw)
	if err != nil {
		return nil, err
	}
	if mb, ok := b.(*doctree.MathBlock); ok {
		mb.Numbered = numbered
		mb.Label = label
	}
	return []doctree.Block{b}, nil
}

func (d *latexDoc) list(kind doctree.ListKind, content string) ([]doctree.Block, error) {
	list := &doctree.List{Kind: kind}
	for _, item := range splitItems(content) {
		blocks, err := d.blocks(item.body)
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, blocks)
		if kind == doctree.Description {
			term, err := d.inlines(item.label)
			if err != nil {
				return nil, err
			}
			list.Terms = append(list.Terms, term)
		}
	}
	return []doctree.Block{list}, nil
}

func latexCode(name, content string) *doctree.CodeBlock {
	var lang string
	switch name {
	case "lstlisting":
		if opts, next, ok := readGroup(content, 0, '[', ']'); ok {
			if m := languagePattern.FindStringSubmatch(opts); m != nil {
				lang = m[1]
			}
			content = content[next:]
		}
	case "minted":
		content = content[skipOptional(content, 0):]
		if l, next, ok := readGroup(content, 0, '{', '}'); ok {
			lang = l
			content = content[next:]
		}
	}
	content = strings.TrimPrefix(content, "\r")
	content = strings.TrimPrefix(content, "\n")
	content = strings.TrimRight(content, " \t")
	return &doctree.CodeBlock{Lang: strings.ToLower(lang), Code: content}
}

func (d *latexDoc) tabular(name, content string) ([]doctree.Block, error) {
	i := skipOptional(content, skipSpace(content, 0))
	specs := 1
	if name == "tabularx" {
		specs = 2
	}
	for range specs {
		if _, next, ok := readGroup(content, skipSpace(content, i), '{', '}'); ok {
			i = next
		}
	}
	body := rulePattern.ReplaceAllString(content[i:], "")

	tbl := &doctree.Table{}
	for _, row := range splitTopLevel(body, `\\`) {
		if strings.TrimSpace(row) == "" {
			continue
		}
		var cells []doctree.Cell
		for _, cell := range splitTopLevel(row, "&") {
			inl, err := d.inlines(cell)
			if err != nil {
				return nil, err
			}
			cells = append(cells, doctree.Cell(inl))
		}
		if tbl.Header == nil {
			tbl.Header = cells
		} else {
			tbl.Rows = append(tbl.Rows, cells)
		}
	}
	return []doctree.Block{tbl}, nil
}

// inlines converts a run of LaTeX prose.
func (d *latexDoc) inlines(s string) ([]doctree.Inline, error) {
	f := &flow{inlineOnly: true}
	if err := d.inlineFlow(f, s); err != nil {
		return nil, err
	}
	return f.inlines(), nil
}

// inner converts a command argument without trimming it.
func (d *latexDoc) inner(s string) ([]doctree.Inline, error) {
	f := &flow{inlineOnly: true}
	if err := d.inlineFlow(f, s); err != nil {
		return nil, err
	}
	return f.cur, nil
}

func (d *latexDoc) inlineFlow(f *flow, s string) error {
	for i := 0; i < len(s); {
		var err error
		switch s[i] {
		case '\\':
			i, err = d.inlineCommand(f, s, i)
		case '$':
			i, err = d.inlineDollar(f, s, i)
		case '{', '}':
			i++
		case ' ', '\t', '\r', '\n':
			for i < len(s) && isBlank(s[i]) {
				i++
			}
			f.text(" ")
		default:
			j := i
			for j < len(s) && !strings.ContainsRune("\\${} \t\r\n", rune(s[j])) {
				j++
			}
			f.text(s[i:j])
			i = j
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *latexDoc) inlineDollar(f *flow, s string, i int) (int, error) {
	if strings.HasPrefix(s[i:], "$$") {
		end := strings.Index(s[i+2:], "$$")
		if end < 0 {
			f.text("$$")
			return i + 2, nil
		}
		body := strings.TrimSpace(s[i+2 : i+2+end])
		in, err := d.math.inline(body, "$$ "+body+" $$")
		if err != nil {
			return 0, err
		}
		f.add(in)
		return i + 2 + end + 2, nil
	}
	end := dollarEnd(s, i+1)
	if end < 0 {
		f.text("$")
		return i + 1, nil
	}
	in, err := d.math.inline(s[i+1:end], s[i:end+1])
	if err != nil {
		return 0, err
	}
	f.add(in)
	return end + 1, nil
}

func (d *latexDoc) inlineCommand(f *flow, s string, i int) (int, error) {
	if i+1 >= len(s) {
		return i + 1, nil
	}
	if c := s[i+1]; !isLetter(c) {
		switch c {
		case '\\':
			f.add(&doctree.LineBreak{})
			j := i + 2
			if j < len(s) && s[j] == '*' {
				j++
			}
			return skipOptional(s, j), nil
		case '(', '[':
			closer := `\)`
			if c == '[' {
				closer = `\]`
			}
			if end := strings.Index(s[i+2:], closer); end >= 0 {
				stop := i + 2 + end + 2
				in, err := d.math.inline(strings.TrimSpace(s[i+2:i+2+end]), s[i:stop])
				if err != nil {
					return 0, err
				}
				f.add(in)
				return stop, nil
			}
		case ',', ';', ':', ' ', '\n':
			f.text(" ")
			return i + 2, nil
		case '-', '/':
			return i + 2, nil
		}
		f.text(string(c))
		return i + 2, nil
	}

	name, j := readName(s, i+1)
	switch name {
	case "textbf":
		return d.styled(f, s, j, doctree.Bold)
	case "emph", "textit", "textsl":
		return d.styled(f, s, j, doctree.Italic)
	case "underline", "uline":
		return d.styled(f, s, j, doctree.Underline)
	case "sout", "st":
		return d.styled(f, s, j, doctree.Strikethrough)

	case "texttt":
		arg, next, ok := nextArg(s, j)
		if !ok {
			return j, nil
		}
		inner, err := d.inner(arg)
		if err != nil {
			return 0, err
		}
		f.add(&doctree.Code{Value: doctree.PlainText(inner)})
		return next, nil

	case "verb":
		if j < len(s) {
			if k := strings.IndexByte(s[j+1:], s[j]); k >= 0 {
				f.add(&doctree.Code{Value: s[j+1 : j+1+k]})
				return j + 1 + k + 1, nil
			}
		}
		return j, nil

	case "href":
		url, next, ok := nextArg(s, j)
		if !ok {
			return j, nil
		}
		label, after, ok := nextArg(s, next)
		if !ok {
			f.add(&doctree.Link{URL: url, Inlines: []doctree.Inline{&doctree.Text{Value: url}}})
			return next, nil
		}
		inner, err := d.inner(label)
		if err != nil {
			return 0, err
		}
		f.add(&doctree.Link{URL: url, Inlines: inner})
		return after, nil

	case "url":
		url, next, ok := nextArg(s, j)
		if !ok {
			return j, nil
		}
		f.add(&doctree.Link{URL: url, Inlines: []doctree.Inline{&doctree.Text{Value: url}}})
		return next, nil

	case "ref", "eqref", "cref", "Cref", "autoref", "cite", "citep", "citet":
		arg, next, ok := nextArg(s, j)
		if !ok {
			return j, nil
		}
		for k, label := range strings.Split(arg, ",") {
			if k > 0 {
				f.text(" ")
			}
			f.add(&doctree.Ref{Label: strings.TrimSpace(label)})
		}
		return next, nil

	case "footnote":
		arg, next, ok := nextArg(s, j)
		if !ok {
			return j, nil
		}
		inner, err := d.inner(arg)
		if err != nil {
			return 0, err
		}
		f.text(" (")
		f.add(inner...)
		f.text(")")
		return next, nil

	case "newline", "linebreak":
		f.add(&doctree.LineBreak{})
		return skipSpace(s, j), nil
	}

	if sym, ok := textSymbols[name]; ok {
		f.text(sym)
		return skipInlineSpace(s, j), nil
	}
	if droppedCommands[name] {
		return skipInlineSpace(s, skipArgs(s, j)), nil
	}

	// Unknown commands keep the text of their first argument.
	if arg, next, ok := nextArg(s, j); ok && next > j {
		inner, err := d.inner(arg)
		if err != nil {
			return 0, err
		}
		f.add(inner...)
		return next, nil
	}
	return skipInlineSpace(s, j), nil
}

func (d *latexDoc) styled(f *flow, s string, j int, style doctree.Style) (int, error) {
	arg, next, ok := nextArg(s, j)
	if !ok {
		return j, nil
	}
	inner, err := d.inner(arg)
	if err != nil {
		return 0, err
	}
	f.add(&doctree.Formatted{Style: style, Inlines: inner})
	return next, nil
}

// stripComments removes % comments outside verbatim environments. A line
// holding only a comment disappears along with its newline.
func stripComments(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		if name := verbatimAt(s, i); name != "" {
			_, after := findEnd(s, name, i+len(`\begin{}`)+len(name))
			b.WriteString(s[i:after])
			i = after
			continue
		}
		switch s[i] {
		case '\\':
			stop := min(i+2, len(s))
			b.WriteString(s[i:stop])
			i = stop
		case '%':
			j := strings.IndexByte(s[i:], '\n')
			if j < 0 {
				i = len(s)
				continue
			}
			lineStart := strings.LastIndexByte(s[:i], '\n') + 1
			if strings.TrimSpace(s[lineStart:i]) == "" {
				j++
			}
			i += j
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String()
}

func verbatimAt(s string, i int) string {
	for _, name := range []string{"verbatim", "Verbatim", "lstlisting", "minted"} {
		if strings.HasPrefix(s[i:], `\begin{`+name+`}`) {
			return name
		}
	}
	return ""
}

// findEnd locates the \end matching a \begin{name} whose body starts at
// from. It returns the end of the body and the index after the \end tag.
// A missing \end runs to the end of s.
func findEnd(s, name string, from int) (contentEnd, after int) {
	begin, end := `\begin{`+name+`}`, `\end{`+name+`}`
	depth := 1
	for i := from; i < len(s); {
		ne := strings.Index(s[i:], end)
		if ne < 0 {
			break
		}
		if nb := strings.Index(s[i:], begin); nb >= 0 && nb < ne {
			depth++
			i += nb + len(begin)
			continue
		}
		depth--
		if depth == 0 {
			return i + ne, i + ne + len(end)
		}
		i += ne + len(end)
	}
	return len(s), len(s)
}

// findCommand finds \name[opt]{arg} and returns its extent and argument.
func findCommand(s, name string) (start, end int, arg string, ok bool) {
	pat := `\` + name
	for from := 0; from < len(s); {
		k := strings.Index(s[from:], pat)
		if k < 0 {
			break
		}
		start = from + k
		j := start + len(pat)
		if j < len(s) && isLetter(s[j]) {
			from = j
			continue
		}
		j = skipOptional(s, skipSpace(s, j))
		if arg, end, ok := readGroup(s, j, '{', '}'); ok {
			return start, end, arg, true
		}
		from = j
	}
	return 0, 0, "", false
}

type latexItem struct {
	label string
	body  string
}

// splitItems cuts a list body at top-level \item commands. Text before the
// first \item is ignored.
func splitItems(s string) []latexItem {
	var items []latexItem
	start, label := -1, ""
	depth := 0
	for i := 0; i < len(s); {
		switch {
		case s[i] == '{':
			depth++
		case s[i] == '}':
			depth--
		case s[i] == '\\':
			switch {
			case strings.HasPrefix(s[i:], `\begin{`):
				depth++
			case strings.HasPrefix(s[i:], `\end{`):
				depth--
			case depth == 0 && strings.HasPrefix(s[i:], `\item`) && (i+5 == len(s) || !isLetter(s[i+5])):
				if start >= 0 {
					items = append(items, latexItem{label: label, body: s[start:i]})
				}
				j := skipSpace(s, i+5)
				label = ""
				if l, next, ok := readGroup(s, j, '[', ']'); ok {
					label, j = l, next
				}
				start, i = j, j
				continue
			}
			i++
		}
		i++
	}
	if start >= 0 {
		items = append(items, latexItem{label: label, body: s[start:]})
	}
	return items
}

// splitTopLevel splits s on sep outside braces, environments and inline math.
func splitTopLevel(s, sep string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch {
		case depth == 0 && strings.HasPrefix(s[i:], sep):
			parts = append(parts, s[start:i])
			i += len(sep) - 1
			start = i + 1
		case s[i] == '\\':
			if strings.HasPrefix(s[i:], `\begin{`) {
				depth++
			} else if strings.HasPrefix(s[i:], `\end{`) {
				depth--
			}
			i++
		case s[i] == '{':
			depth++
		case s[i] == '}':
			depth--
		case s[i] == '$':
			if end := dollarEnd(s, i+1); end >= 0 {
				i = end
			}
		}
	}
	return append(parts, s[start:])
}

// dollarEnd returns the index of the next unescaped $ at or after from, or -1.
func dollarEnd(s string, from int) int {
	for j := from; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '$':
			return j
		}
	}
	return -1
}

// readGroup reads a balanced open..close group starting at s[i] and returns
// its interior and the index after the closer.
func readGroup(s string, i int, open, close byte) (string, int, bool) {
	if i >= len(s) || s[i] != open {
		return "", i, false
	}
	depth := 0
	for j := i; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[i+1 : j], j + 1, true
			}
		}
	}
	return "", i, false
}

// nextArg reads the next braced argument after optional [..] groups.
func nextArg(s string, j int) (string, int, bool) {
	k := skipOptional(s, skipInlineSpace(s, j))
	return readGroup(s, k, '{', '}')
}

func skipOptional(s string, i int) int {
	for {
		_, next, ok := readGroup(s, i, '[', ']')
		if !ok {
			return i
		}
		i = skipInlineSpace(s, next)
	}
}

// skipArgs consumes any [..] and {..} groups directly after a command.
func skipArgs(s string, i int) int {
	for {
		k := skipInlineSpace(s, i)
		var next int
		var ok bool
		switch {
		case k < len(s) && s[k] == '{':
			_, next, ok = readGroup(s, k, '{', '}')
		case k < len(s) && s[k] == '[':
			_, next, ok = readGroup(s, k, '[', ']')
		}
		if !ok {
			return i
		}
		i = next
	}
}

func readName(s string, i int) (string, int) {
	j := i
	for j < len(s) && isLetter(s[j]) {
		j++
	}
	return s[i:j], j
}

func skipSpace(s string, i int) int {
	for i < len(s) && isBlank(s[i]) {
		i++
	}
	return i
}

func skipInlineSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
