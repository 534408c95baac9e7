package pipeline

import "testing"

func TestFilter(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		wantOK bool
	}{
		{"plain text passes through", "hello there", "hello there", true},
		{"strips parenthetical aside", "hello (stage direction) there", "hello  there", true},
		{"strips fullwidth parenthetical", "hello（舞台）there", "hellothere", true},
		{"drops unmatched quote", "she said \"hi", "she said hi", true},
		{"keeps matched straight quotes", "she said \"hi\" loudly", "she said \"hi\" loudly", true},
		{"keeps matched curly quotes", "she said “hi” loudly", "she said “hi” loudly", true},
		{"drops unmatched curly close", "hi” there", "hi there", true},
		{"sweeps stray tilde and parens", "wow~ (ok) cool", "wow  cool", true},
		{"trims boundary ellipsis", "...hello...", "hello", true},
		{"trims fullwidth ellipsis", "…hello…", "hello", true},
		{"only quotes is empty", "\"\"", "", false},
		{"empty input is empty", "", "", false},
		{"whitespace only is empty", "   ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Filter(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Filter(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFilterIdempotent(t *testing.T) {
	inputs := []string{
		"hello (aside) there",
		"\"unbalanced",
		"wow~ cool",
		"...leading and trailing...",
		"plain sentence.",
	}
	for _, in := range inputs {
		first, ok1 := Filter(in)
		if !ok1 {
			continue
		}
		second, ok2 := Filter(first)
		if !ok2 || first != second {
			t.Errorf("Filter not idempotent for %q: first=%q second=%q ok2=%v", in, first, second, ok2)
		}
	}
}

func TestHasUnpairedBracket(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"no brackets", "hello there", false},
		{"balanced paren", "hello (there) now", false},
		{"balanced fullwidth", "hello（there）now", false},
		{"unclosed paren", "hello (there", true},
		{"unopened close", "hello) there", true},
		{"mixed family unpaired", "hello（there)", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasUnpairedBracket(tt.input); got != tt.want {
				t.Errorf("hasUnpairedBracket(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripPunctuationAndEmoji(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims trailing period", "hello.", "hello"},
		{"trims trailing comma", "hello,", "hello"},
		{"trims leading punctuation", ",hello", "hello"},
		{"drops emoji", "hello😀there", "hellothere"},
		{"drops emoji with variation selector", "ok👍️", "ok"},
		{"keeps interior punctuation", "wait, really?", "wait, really"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripPunctuationAndEmoji(tt.input); got != tt.want {
				t.Errorf("stripPunctuationAndEmoji(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
