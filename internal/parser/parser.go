package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/typstgest/internal/doctree"
)

// Parser converts raw document bytes into a Document.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Document, error)
}

// Options control every parser.
type Options struct {
	// Strict turns math that fails to parse into an error. Otherwise the
	// span is kept as literal source text.
	Strict bool
	// MaxMathDepth bounds math nesting; zero uses the latexmath default.
	MaxMathDepth int
	// PDFFallback retries PDF extraction with pdftotext.
	PDFFallback bool
}

// Format names an input format.
type Format string

const (
	FormatAuto     Format = "auto"
	FormatMarkdown Format = "markdown"
	FormatLatex    Format = "latex"
	FormatHTML     Format = "html"
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
)

// SupportedExtensions maps file extensions this service can handle to their format.
var SupportedExtensions = map[string]Format{
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".tex":      FormatLatex,
	".latex":    FormatLatex,
	".txt":      FormatText,
	".csv":      FormatCSV,
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".pdf":      FormatPDF,
	".docx":     FormatDOCX,
}

// ParseFormat validates a format name. The empty string means FormatAuto.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatAuto, nil
	case "md":
		return FormatMarkdown, nil
	case "tex":
		return FormatLatex, nil
	case "txt":
		return FormatText, nil
	case FormatAuto, FormatMarkdown, FormatLatex, FormatHTML, FormatText, FormatCSV, FormatPDF, FormatDOCX:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// FormatForFile returns the format implied by a filename's extension.
func FormatForFile(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	f, ok := SupportedExtensions[ext]
	if !ok {
		return "", fmt.Errorf("unsupported file extension: %s", ext)
	}
	return f, nil
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	f, err := FormatForFile(filename)
	if err != nil {
		return nil, err
	}
	return ForFormat(f, opts)
}

// ForFormat returns the parser for f. FormatAuto must be resolved first,
// for example with DetectFormat.
func ForFormat(f Format, opts Options) (Parser, error) {
	switch f {
	case FormatMarkdown:
		return &MarkdownParser{Options: opts}, nil
	case FormatLatex:
		return &LatexParser{Options: opts}, nil
	case FormatText:
		return &TextParser{Options: opts}, nil
	case FormatCSV:
		return &CSVParser{Options: opts}, nil
	case FormatHTML:
		return &HTMLParser{Options: opts}, nil
	case FormatPDF:
		return &PDFParser{Options: opts}, nil
	case FormatDOCX:
		return &DOCXParser{Options: opts}, nil
	}
	return nil, fmt.Errorf("no parser for format %q", f)
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	_, ok := SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// titleFromFilename strips the directory and extension.
func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	if filename == "" || base == "." {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
