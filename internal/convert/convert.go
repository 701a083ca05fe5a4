// Package convert ties the document parsers to the Typst renderer.
package convert

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/typstgest/internal/doctree"
	"github.com/dgallion1/typstgest/internal/latexmath"
	"github.com/dgallion1/typstgest/internal/parser"
	"github.com/dgallion1/typstgest/internal/typst"
)

// Result is a finished conversion.
type Result struct {
	Typst    string
	Format   parser.Format
	Metadata doctree.Metadata
	Blocks   int
	// MathSpans counts every math span found, including the ones that
	// fell back to literal source.
	MathSpans     int
	MathFallbacks int
}

// Converter converts documents with a fixed set of parser options.
type Converter struct {
	Options parser.Options
}

// New returns a Converter using opts.
func New(opts parser.Options) *Converter {
	return &Converter{Options: opts}
}

// Convert converts in-memory source. FormatAuto picks between Markdown and
// LaTeX by content.
func (c *Converter) Convert(input string, format parser.Format) (*Result, error) {
	if format == parser.FormatAuto {
		format = parser.DetectFormat(input)
	}
	return c.convert(strings.NewReader(input), "", format)
}

// ConvertReader converts a named document. With FormatAuto the filename
// extension decides, and content detection is used when it cannot.
func (c *Converter) ConvertReader(r io.Reader, filename string, format parser.Format) (*Result, error) {
	if format != parser.FormatAuto {
		return c.convert(r, filename, format)
	}
	if f, err := parser.FormatForFile(filename); err == nil {
		return c.convert(r, filename, f)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return c.convert(bytes.NewReader(data), filename, ResolveFormat(format, filename, data))
}

// ConvertFile converts the file at path, choosing the parser by extension.
func (c *Converter) ConvertFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return c.ConvertReader(f, path, parser.FormatAuto)
}

// ConvertMath converts a single math-mode expression. Unlike document
// conversion there is no fallback: a parse failure is returned as a
// *latexmath.InvalidMathError.
func (c *Converter) ConvertMath(src string, display bool) (string, error) {
	e, err := latexmath.ParseWithOptions(strings.TrimSpace(src), latexmath.ParseOptions{MaxDepth: c.Options.MaxMathDepth})
	if err != nil {
		return "", err
	}
	return typst.Math(e, display)
}

func (c *Converter) convert(r io.Reader, filename string, format parser.Format) (*Result, error) {
	doc, err := c.Parse(r, filename, format)
	if err != nil {
		return nil, err
	}
	res, err := Render(doc)
	if err != nil {
		return nil, err
	}
	res.Format = format
	return res, nil
}

// Parse builds the document tree without rendering it. format must not be
// FormatAuto.
func (c *Converter) Parse(r io.Reader, filename string, format parser.Format) (*doctree.Document, error) {
	p, err := parser.ForFormat(format, c.Options)
	if err != nil {
		return nil, err
	}
	return p.Parse(r, filename)
}

// Render renders a parsed document. Result.Format is left empty.
func Render(doc *doctree.Document) (*Result, error) {
	out, err := typst.Render(doc)
	if err != nil {
		return nil, err
	}
	spans, fallbacks := doc.MathCounts()
	return &Result{
		Typst:         out,
		Metadata:      doc.Metadata,
		Blocks:        len(doc.Blocks),
		MathSpans:     spans,
		MathFallbacks: fallbacks,
	}, nil
}

// ResolveFormat turns FormatAuto into a concrete format using the filename
// extension, then the content.
func ResolveFormat(format parser.Format, filename string, data []byte) parser.Format {
	if format != parser.FormatAuto {
		return format
	}
	if f, err := parser.FormatForFile(filename); err == nil {
		return f
	}
	return parser.DetectFormat(string(data))
}

var defaultConverter = New(parser.Options{})

// Convert detects the format of input and converts it to Typst.
func Convert(input string) (string, error) {
	return typstOnly(defaultConverter.Convert(input, parser.FormatAuto))
}

// ConvertMarkdown converts Markdown with embedded LaTeX math.
func ConvertMarkdown(input string) (string, error) {
	return typstOnly(defaultConverter.Convert(input, parser.FormatMarkdown))
}

// ConvertLatex converts a LaTeX document.
func ConvertLatex(input string) (string, error) {
	return typstOnly(defaultConverter.Convert(input, parser.FormatLatex))
}

// ConvertFile converts the file at path.
func ConvertFile(path string) (string, error) {
	return typstOnly(defaultConverter.ConvertFile(path))
}

// ConvertMath converts one math expression, wrapped as inline or display math.
func ConvertMath(latex string, display bool) (string, error) {
	return defaultConverter.ConvertMath(latex, display)
}

func typstOnly(res *Result, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return res.Typst, nil
}
