package parser

import "strings"

// strongLatexIndicators settle detection when they appear near the top.
var strongLatexIndicators = []string{`\documentclass`, `\begin{document}`, `\usepackage`}

var latexCommands = []string{
	`\section`, `\subsection`, `\chapter`, `\textbf`, `\emph`, `\item`, `\begin{`, `\end{`,
}

// DetectFormat guesses whether input is LaTeX or Markdown. Anything without
// clear LaTeX structure is Markdown.
func DetectFormat(input string) Format {
	head := input[:min(len(input), 500)]
	for _, ind := range strongLatexIndicators {
		if strings.Contains(head, ind) {
			return FormatLatex
		}
	}

	latex := 0
	for _, cmd := range latexCommands {
		latex += strings.Count(input, cmd)
	}

	md := strings.Count(input, "```") / 2
	for _, line := range strings.Split(input, "\n") {
		switch {
		case strings.HasPrefix(line, "# "), strings.HasPrefix(line, "##"):
			md++
		case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
			md++
		}
	}

	if latex > md && latex >= 1 {
		return FormatLatex
	}
	return FormatMarkdown
}
