package convert

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dgallion1/typstgest/internal/latexmath"
	"github.com/dgallion1/typstgest/internal/parser"
)

func TestConvertMarkdown(t *testing.T) {
	out, err := ConvertMarkdown("# Hello\n\nSome math: $x^2 + y^2 = z^2$")
	require.NoError(t, err)
	require.Equal(t, "= Hello\n\nSome math: $x^2 + y^2 = z^2$\n", out)
}

func TestConvertLatex(t *testing.T) {
	out, err := ConvertLatex("\\section{Intro}\nText $a$.\n")
	require.NoError(t, err)
	require.Equal(t, "= Intro\n\nText $a$.\n", out)
}

func TestConvertDetectsFormat(t *testing.T) {
	out, err := Convert("\\documentclass{article}\n\\begin{document}\n\\section{A}\n\\end{document}\n")
	require.NoError(t, err)
	require.Equal(t, "= A\n", out)

	out, err = Convert("## Sub")
	require.NoError(t, err)
	require.Equal(t, "== Sub\n", out)
}

func TestConvertEmpty(t *testing.T) {
	out, err := Convert("")
	require.NoError(t, err)
	require.Equal(t, "", out)
}

func TestConvertFallbackKeepsSource(t *testing.T) {
	out, err := ConvertMarkdown(`Broken $\badcommand{$ formula`)
	require.NoError(t, err)
	require.Contains(t, out, `$\badcommand{$`)
}

func TestConvertUnsupportedEnvironmentFails(t *testing.T) {
	_, err := ConvertMarkdown("$$\\begin{foo}a\\end{foo}$$")
	require.Error(t, err)
	var convErr *latexmath.ConversionError
	require.True(t, errors.As(err, &convErr), "expected ConversionError, got %v", err)
}

func TestConverterStrict(t *testing.T) {
	c := New(parser.Options{Strict: true})
	_, err := c.Convert(`Broken $\badcommand{$ formula`, parser.FormatMarkdown)
	require.Error(t, err)
	var mathErr *latexmath.InvalidMathError
	require.True(t, errors.As(err, &mathErr))
}

func TestConverterResultCounts(t *testing.T) {
	c := New(parser.Options{})
	res, err := c.Convert("A $x$ and $\\frac{a}{$.\n\n$$y$$", parser.FormatMarkdown)
	require.NoError(t, err)
	require.Equal(t, parser.FormatMarkdown, res.Format)
	require.Equal(t, 3, res.MathSpans)
	require.Equal(t, 1, res.MathFallbacks)
	require.Equal(t, 2, res.Blocks)
}

func TestConvertMath(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		display bool
		want    string
	}{
		{"inline fraction", `\frac{a}{b}`, false, "$a/b$"},
		{"display fraction", `\frac{a}{b}`, true, "$ a/b $"},
		{"trimmed", "  x^2  ", false, "$x^2$"},
		{"sum", `\sum_i^n`, false, "$sum_i^n$"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConvertMath(tt.src, tt.display)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := ConvertMath(`\frac{a}{`, false)
	var mathErr *latexmath.InvalidMathError
	require.True(t, errors.As(err, &mathErr))
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("Energy $E = mc^2$"), 0o644))

	out, err := ConvertFile(path)
	require.NoError(t, err)
	require.Equal(t, "#set document(title: \"notes\")\n\nEnergy $E = m c^2$\n", out)

	_, err = ConvertFile(filepath.Join(dir, "missing.md"))
	require.Error(t, err)
}

func TestConvertReaderDetectsUnknownExtension(t *testing.T) {
	c := New(parser.Options{})
	res, err := c.ConvertReader(strings.NewReader("\\documentclass{article}\n\\begin{document}\nHi\n\\end{document}"), "upload.bin", parser.FormatAuto)
	require.NoError(t, err)
	require.Equal(t, parser.FormatLatex, res.Format)
	require.Equal(t, "Hi\n", res.Typst)
}
