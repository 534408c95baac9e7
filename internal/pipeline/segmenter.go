package pipeline

import (
	"strings"
	"unicode/utf8"
)

// Segmenter consumes an incremental text stream and cuts maximal
// sentence-like segments at punctuation boundaries, carving bracketed
// stage-direction text out of the spoken stream without losing cursor
// position over it.
type Segmenter struct {
	textBuffer      strings.Builder
	processedChars  int
	bracketsSeen    []string
	beforeTextArr   []string
	isFirstSentence bool
	stopRequested   bool
}

// NewSegmenter returns a segmenter ready for a fresh turn.
func NewSegmenter() *Segmenter {
	s := &Segmenter{}
	s.Reset()
	return s
}

// Reset is called on FIRST: clears all buffers and cursor state.
func (s *Segmenter) Reset() {
	s.textBuffer.Reset()
	s.processedChars = 0
	s.bracketsSeen = nil
	s.beforeTextArr = nil
	s.isFirstSentence = true
	s.stopRequested = false
}

// Push appends an incremental text chunk to the buffer.
func (s *Segmenter) Push(chunk string) {
	s.textBuffer.WriteString(chunk)
}

// RequestStop arms the final-tail flush path consulted by TryEmit; used by
// Drain and by mid-stream cancellation alike.
func (s *Segmenter) RequestStop() {
	s.stopRequested = true
}

// TryEmit attempts to cut the next spoken segment out of the buffer.
// cut=false means no boundary is available yet and the caller should wait
// for more text; cut=true with an empty segment means a boundary was found
// but the segment filtered to nothing, so there is nothing to synthesize.
// Absorbing a closed bracket is not itself a cut.
func (s *Segmenter) TryEmit() (segment string, cut bool) {
	full := s.textBuffer.String()

	if hasUnpairedBracket(full) {
		return "", false
	}

	found, brackets := allPairedBrackets(full)
	if found && len(brackets) > len(s.bracketsSeen) {
		s.bracketsSeen = brackets
		newest := brackets[len(brackets)-1]
		skip := len(full) - s.processedChars - len(newest)
		if skip < 0 {
			skip = 0
		}
		pre := full[s.processedChars : s.processedChars+skip]
		s.beforeTextArr = append(s.beforeTextArr, pre)
		s.processedChars += skip + len(newest)
	}

	before := strings.Join(s.beforeTextArr, "")
	current := before + full[s.processedChars:]

	if isTextEmptyAfterQuoteStrip(current) {
		return "", false
	}

	if pos := leftmostCut(current, cutPunctuation); pos >= 0 {
		raw := current[:pos]
		s.processedChars += len(raw) - len(before)
		s.beforeTextArr = nil
		s.isFirstSentence = false
		spoken, ok := Filter(stripPunctuationAndEmoji(raw))
		if !ok {
			return "", true
		}
		return spoken, true
	}

	if s.stopRequested && current != "" {
		s.isFirstSentence = true
		s.bracketsSeen = nil
		s.beforeTextArr = nil
		s.processedChars = len(full)
		spoken, ok := Filter(current)
		if !ok {
			return "", true
		}
		return spoken, true
	}

	return "", false
}

// Drain flushes any residual buffered text; called on LAST and before a
// FILE message interrupts the text stream.
func (s *Segmenter) Drain() (string, bool) {
	s.stopRequested = true
	segment, cut := s.TryEmit()
	s.stopRequested = false
	return segment, cut
}

// allPairedBrackets returns every matched (...) / （...） substring found in
// s, in order of appearance, using the same "matching family on top of the
// stack" rule as hasUnpairedBracket.
func allPairedBrackets(s string) (bool, []string) {
	type opener struct {
		idx int
		ch  rune
	}
	var stack []opener
	var pairs []string
	runes := []rune(s)
	byteOffsets := make([]int, len(runes)+1)
	off := 0
	for i, r := range runes {
		byteOffsets[i] = off
		off += utf8.RuneLen(r)
	}
	byteOffsets[len(runes)] = off

	for i, r := range runes {
		switch r {
		case '(', '（':
			stack = append(stack, opener{i, r})
		case ')':
			if n := len(stack); n > 0 && stack[n-1].ch == '(' {
				o := stack[n-1]
				stack = stack[:n-1]
				pairs = append(pairs, string(runes[o.idx:i+1]))
			}
		case '）':
			if n := len(stack); n > 0 && stack[n-1].ch == '（' {
				o := stack[n-1]
				stack = stack[:n-1]
				pairs = append(pairs, string(runes[o.idx:i+1]))
			}
		}
	}
	return len(pairs) > 0, pairs
}

func isTextEmptyAfterQuoteStrip(s string) bool {
	if s == "" {
		return true
	}
	return isOnlyQuoteRunes(s)
}

// leftmostCut returns the byte offset just past the first (leftmost)
// occurrence of any member of marks in s, skipping over ellipsis runs
// ("..." or "…") so a medial ellipsis is never mistaken for a sentence
// boundary. Returns -1 if no mark is found.
func leftmostCut(s string, marks []string) int {
	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], "...") {
			i += 3
			continue
		}
		if strings.HasPrefix(s[i:], "…") {
			i += len("…")
			continue
		}
		for _, m := range marks {
			if strings.HasPrefix(s[i:], m) {
				return i + len(m)
			}
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1
}
