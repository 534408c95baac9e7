package pipeline

import (
	"strings"
	"unicode/utf8"
)

// quote pairing. Straight double-quote and straight single-quote toggle
// (same rune opens then closes); curly variants have distinct open/close
// runes.
const (
	straightDouble = '"'
	straightSingle = '\''
	curlyDoubleOpen  = '“' // “
	curlyDoubleClose = '”' // ”
	curlySingleOpen  = '‘' // ‘
	curlySingleClose = '’' // ’
)

var strayRunes = map[rune]bool{
	'(': true, ')': true,
	'（': true, '）': true, // （ ）
	'~': true, '～': true, // ~ ～
}

// Filter implements the text filter: bracket removal, quote balancing,
// stray-symbol sweep and boundary-ellipsis trimming. It returns ok=false
// when nothing is left to speak.
func Filter(raw string) (string, bool) {
	s := removeBracketPairs(raw)
	s = balanceQuotes(s)
	s = sweepSymbols(s)
	s = strings.TrimSpace(s)
	if s == "" || isOnlyQuoteRunes(s) {
		return "", false
	}
	return s, true
}

// removeBracketPairs strips every matched (...) or （...） pair, content
// included. Mixed-family closes (e.g. （ closed by )) are left untouched,
// matching the "only the matching family on top of the stack closes"
// behavior of the segmenter's own bracket detector.
func removeBracketPairs(s string) string {
	runes := []rune(s)
	for {
		start, end, found := findInnermostBracket(runes)
		if !found {
			break
		}
		runes = append(runes[:start], runes[end+1:]...)
	}
	return string(runes)
}

func findInnermostBracket(runes []rune) (int, int, bool) {
	type opener struct {
		idx  int
		ch   rune
	}
	var stack []opener
	for i, r := range runes {
		switch r {
		case '(', '（':
			stack = append(stack, opener{i, r})
		case ')':
			if n := len(stack); n > 0 && stack[n-1].ch == '(' {
				o := stack[n-1]
				return o.idx, i, true
			}
		case '）':
			if n := len(stack); n > 0 && stack[n-1].ch == '（' {
				o := stack[n-1]
				return o.idx, i, true
			}
		}
	}
	return 0, 0, false
}

// balanceQuotes deletes quote runes whose partner is absent; content
// between matched pairs (including the quote runes themselves) is kept.
func balanceQuotes(s string) string {
	runes := []rune(s)
	deleted := make([]bool, len(runes))

	type entry struct {
		idx int
		ch  rune
	}
	var stack []entry

	for i, r := range runes {
		switch r {
		case straightDouble, straightSingle:
			if n := len(stack); n > 0 && stack[n-1].ch == r {
				stack = stack[:n-1]
			} else {
				stack = append(stack, entry{i, r})
			}
		case curlyDoubleOpen, curlySingleOpen:
			stack = append(stack, entry{i, r})
		case curlyDoubleClose:
			if n := len(stack); n > 0 && stack[n-1].ch == curlyDoubleOpen {
				stack = stack[:n-1]
			} else {
				deleted[i] = true
			}
		case curlySingleClose:
			if n := len(stack); n > 0 && stack[n-1].ch == curlySingleOpen {
				stack = stack[:n-1]
			} else {
				deleted[i] = true
			}
		}
	}
	for _, e := range stack {
		deleted[e.idx] = true
	}

	var b strings.Builder
	for i, r := range runes {
		if !deleted[i] {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func sweepSymbols(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strayRunes[r] {
			continue
		}
		b.WriteRune(r)
	}
	return trimBoundaryEllipsis(b.String())
}

func trimBoundaryEllipsis(s string) string {
	for {
		changed := false
		switch {
		case strings.HasPrefix(s, "..."):
			s = s[3:]
			changed = true
		case strings.HasPrefix(s, "…"):
			s = s[len("…"):]
			changed = true
		}
		switch {
		case strings.HasSuffix(s, "..."):
			s = s[:len(s)-3]
			changed = true
		case strings.HasSuffix(s, "…"):
			s = s[:len(s)-len("…")]
			changed = true
		}
		if !changed {
			return s
		}
	}
}

func isOnlyQuoteRunes(s string) bool {
	for _, r := range s {
		switch r {
		case straightDouble, straightSingle, curlyDoubleOpen, curlyDoubleClose, curlySingleOpen, curlySingleClose, ' ':
			continue
		default:
			return false
		}
	}
	return true
}

// hasUnpairedBracket reports whether s contains an opening bracket with no
// matching close (or a close whose matching family never opened), tracked
// with a stack of rune families.
func hasUnpairedBracket(s string) bool {
	var stack []rune
	for _, r := range s {
		switch r {
		case '(', '（':
			stack = append(stack, r)
		case ')':
			if n := len(stack); n > 0 && stack[n-1] == '(' {
				stack = stack[:n-1]
			} else {
				return true
			}
		case '）':
			if n := len(stack); n > 0 && stack[n-1] == '（' {
				stack = stack[:n-1]
			} else {
				return true
			}
		}
	}
	return len(stack) > 0
}

// emojiRanges covers the common emoji/pictograph blocks plus modifiers.
var emojiRanges = [][2]rune{
	{0x1F300, 0x1FAFF},
	{0x2600, 0x27BF},
	{0x2B00, 0x2BFF},
	{0x1F1E6, 0x1F1FF}, // regional indicators
	{0xFE0F, 0xFE0F},   // variation selector-16
	{0x200D, 0x200D},   // ZWJ
}

func isEmojiRune(r rune) bool {
	for _, rng := range emojiRanges {
		if r >= rng[0] && r <= rng[1] {
			return true
		}
	}
	return false
}

// cutPunctuation is the full cut-set used for every segment of a turn. See
// DESIGN.md for why the narrower "subsequent" set from the source material
// is not used here.
var cutPunctuation = []string{
	"，", "~", "～", "、", ",", // ， ~ ～ 、 ,
	"。", ".", "？", "?", "！", "!", "；", ";", "：", // 。 . ？ ? ！ ! ； ; ：
}

// stripPunctuationAndEmoji removes emoji codepoints and any run of trailing
// (or leading) cut-set punctuation from s, grounded on the
// get_string_no_punctuation_or_emoji capability.
func stripPunctuationAndEmoji(s string) string {
	var b strings.Builder
	for _, r := range s {
		if isEmojiRune(r) {
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()
	out = strings.TrimFunc(out, isCutPunctuationRune)
	return out
}

func isCutPunctuationRune(r rune) bool {
	buf := make([]byte, utf8.RuneLen(r))
	utf8.EncodeRune(buf, r)
	s := string(buf)
	for _, m := range cutPunctuation {
		if m == s {
			return true
		}
	}
	return false
}
