// Command typst-repl is an interactive LaTeX math to Typst converter.
//
// With file arguments it converts each file and prints the Typst output
// instead of starting the prompt.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/dgallion1/typstgest/internal/convert"
	"github.com/dgallion1/typstgest/internal/parser"
)

const historyFile = ".typst_repl_history"

func main() {
	conv := convert.New(parser.Options{})

	if len(os.Args) > 1 {
		os.Exit(convertFiles(conv, os.Args[1:], os.Stdout, os.Stderr))
	}

	runREPL(newSession(conv, os.Stdout))
}

// convertFiles converts each path and returns the process exit code.
func convertFiles(conv *convert.Converter, paths []string, stdout, stderr io.Writer) int {
	code := 0
	for _, path := range paths {
		res, err := conv.ConvertFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", path, err)
			code = 1
			continue
		}
		fmt.Fprint(stdout, res.Typst)
	}
	return code
}

func runREPL(s *session) {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
	}
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			f.Close()
		}
	}

	fmt.Fprintln(s.out, "typst-repl: enter LaTeX math, :help for commands, Ctrl-D to exit")

	for {
		input, ok := readInput(ln, "math> ", "...> ")
		if !ok {
			break
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(input, "\n", " "))
		if s.handle(input) {
			break
		}
	}

	if histPath != "" {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			f.Close()
		}
	}
}

// readInput keeps prompting while the braces or environments entered so
// far are still open. It reports false on EOF or abort.
func readInput(ln *liner.State, prompt, cont string) (string, bool) {
	var buf strings.Builder
	for {
		p := prompt
		if buf.Len() > 0 {
			p = cont
		}
		line, err := ln.Prompt(p)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			if buf.Len() > 0 && errors.Is(err, liner.ErrPromptAborted) {
				// Ctrl-C drops a half-entered expression but keeps the session.
				buf.Reset()
				continue
			}
			return "", false
		}
		if err != nil {
			return "", false
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)
		if strings.HasPrefix(strings.TrimSpace(buf.String()), ":") || balanced(buf.String()) {
			return buf.String(), true
		}
	}
}
