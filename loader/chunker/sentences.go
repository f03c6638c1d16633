package chunker

import (
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/sentences"
)

const (
	terminators = ".!?"
	closers     = "\"')]}»”’"
)

// SplitSentences cuts text into sentence units without dropping a byte:
// each unit keeps the whitespace that follows it, so joining the units
// gives back text. Units are UAX #29 sentences, except that a single line
// break inside a sentence does not end it and whitespace-only segments
// stay with the unit before them. Blank text yields no units.
func SplitSentences(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var (
		out []string
		cur string
	)
	segs := sentences.FromString(text)
	for segs.Next() {
		seg := segs.Value()
		if cur != "" && strings.TrimSpace(seg) != "" && !continues(cur) {
			out = append(out, cur)
			cur = ""
		}
		cur += seg
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

// continues reports whether the next segment belongs to unit: the unit is
// still blank, or it was cut at a lone line break in the middle of a sentence.
func continues(unit string) bool {
	body := strings.TrimRightFunc(unit, unicode.IsSpace)
	if body == "" {
		return true
	}
	if strings.Count(unit[len(body):], "\n") != 1 {
		return false
	}
	body = strings.TrimRight(body, closers)
	return body != "" && !strings.ContainsAny(body[len(body)-1:], terminators)
}

// CombineBuffered returns, for every unit, the unit joined with up to
// bufferSize neighbours on each side. The result is trimmed for embedding.
func CombineBuffered(units []string, bufferSize int) []string {
	if bufferSize < 0 {
		bufferSize = 0
	}
	out := make([]string, len(units))
	for i := range units {
		lo := max(0, i-bufferSize)
		hi := min(len(units), i+bufferSize+1)
		out[i] = strings.TrimSpace(strings.Join(units[lo:hi], ""))
	}
	return out
}
