package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/repr"

	"github.com/dgallion1/typstgest/internal/convert"
	"github.com/dgallion1/typstgest/internal/latexmath"
)

const helpText = `Commands:
  :help          show this help
  :display       toggle display (block) math output
  :tree <latex>  print the parsed expression tree
  :doc <file>    convert a whole document
  :quit, :exit   leave the REPL
Anything else is converted as a math expression.
`

type session struct {
	conv    *convert.Converter
	out     io.Writer
	display bool
}

func newSession(conv *convert.Converter, out io.Writer) *session {
	return &session{conv: conv, out: out}
}

// handle runs one line of input and reports whether the session should end.
func (s *session) handle(input string) (exit bool) {
	line := strings.TrimSpace(input)
	if !strings.HasPrefix(line, ":") {
		s.math(line)
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case ":quit", ":exit", ":q":
		return true
	case ":help", ":h":
		fmt.Fprint(s.out, helpText)
	case ":display":
		s.display = !s.display
		mode := "inline"
		if s.display {
			mode = "display"
		}
		fmt.Fprintf(s.out, "math mode: %s\n", mode)
	case ":tree":
		if arg == "" {
			fmt.Fprintln(s.out, "usage: :tree <latex>")
			return false
		}
		e, err := latexmath.ParseWithOptions(arg, latexmath.ParseOptions{MaxDepth: s.conv.Options.MaxMathDepth})
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
			return false
		}
		fmt.Fprintln(s.out, repr.String(e, repr.Indent("  "), repr.OmitEmpty(true)))
	case ":doc":
		if arg == "" {
			fmt.Fprintln(s.out, "usage: :doc <file>")
			return false
		}
		res, err := s.conv.ConvertFile(arg)
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
			return false
		}
		fmt.Fprint(s.out, res.Typst)
		if res.MathFallbacks > 0 {
			fmt.Fprintf(s.out, "(%d of %d math spans kept as source)\n", res.MathFallbacks, res.MathSpans)
		}
	default:
		fmt.Fprintf(s.out, "unknown command %s, try :help\n", cmd)
	}
	return false
}

func (s *session) math(src string) {
	out, err := s.conv.ConvertMath(src, s.display)
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, out)
}

// balanced reports whether every brace group and \begin has been closed.
// Escaped braces do not count.
func balanced(s string) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
		}
	}
	if depth > 0 {
		return false
	}
	return strings.Count(s, `\begin{`) <= strings.Count(s, `\end{`)
}
