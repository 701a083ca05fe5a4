package parser

import (
	"testing"
)

func TestSplitMath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []span
	}{
		{"plain", "no math", []span{{spanText, "no math", "no math"}}},
		{"inline", "a $x$ b", []span{
			{spanText, "a ", "a "},
			{spanInline, "x", "$x$"},
			{spanText, " b", " b"},
		}},
		{"display", "$$x^2$$", []span{{spanDisplay, "x^2", "$$x^2$$"}}},
		{"paren", `\(a\)`, []span{{spanInline, "a", `\(a\)`}}},
		{"bracket", `\[a\]`, []span{{spanDisplay, "a", `\[a\]`}}},
		{"escaped dollar", `\$5`, []span{{spanText, "$5", "$5"}}},
		{"space after opener", "$ x$", []span{{spanText, "$ x$", "$ x$"}}},
		{"digit after closer", "$5 and $10", []span{{spanText, "$5 and $10", "$5 and $10"}}},
		{"newline", "$a\nb$", []span{{spanText, "$a\nb$", "$a\nb$"}}},
		{"unclosed", "$a", []span{{spanText, "$a", "$a"}}},
		{"escaped closer", `$a\$b$`, []span{{spanInline, `a\$b`, `$a\$b$`}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitMath(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d spans, got %d: %#v", len(tt.want), len(got), got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("span[%d]: expected %#v, got %#v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestTrimInlinesDropsWhitespace(t *testing.T) {
	f := &flow{}
	f.text("  ")
	f.flush()
	if len(f.blocks) != 0 {
		t.Errorf("expected whitespace-only paragraph to be dropped, got %#v", f.blocks)
	}
}
