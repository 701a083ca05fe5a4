package latexmath

import "fmt"

// InvalidMathError reports malformed math input. Pos is a byte offset into the
// string passed to Parse.
type InvalidMathError struct {
	Pos int
	Msg string
}

func (e *InvalidMathError) Error() string {
	return fmt.Sprintf("invalid math expression at position %d: %s", e.Pos, e.Msg)
}

// ConversionError reports a tree that has no Typst rendering, such as an
// environment this package does not know how to lay out.
type ConversionError struct {
	Msg string
}

func (e *ConversionError) Error() string {
	return "conversion error: " + e.Msg
}
