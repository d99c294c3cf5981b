// File: internal/humanizer/text.go
package humanizer

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

var (
	horizontalSpace    = regexp.MustCompile(`[\t\f\r\v\p{Zs}]+`)
	spaceAroundNewline = regexp.MustCompile(` ?\n ?`)
	manyNewlines       = regexp.MustCompile(`\n{3,}`)
	doubleSpace        = regexp.MustCompile(` {2,}`)
)

// emojiPresentation holds the code points that render as emoji on their own:
// the BMP Emoji_Presentation set and the pictograph blocks. Text-default
// symbols (✓, ★, ©, ❤, digits) only count when a variation selector or keycap
// follows them, which isEmojiCluster checks separately.
var emojiPresentation = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x231A, Hi: 0x231B, Stride: 1},
		{Lo: 0x23E9, Hi: 0x23EC, Stride: 1},
		{Lo: 0x23F0, Hi: 0x23F0, Stride: 1},
		{Lo: 0x23F3, Hi: 0x23F3, Stride: 1},
		{Lo: 0x25FD, Hi: 0x25FE, Stride: 1},
		{Lo: 0x2614, Hi: 0x2615, Stride: 1},
		{Lo: 0x2648, Hi: 0x2653, Stride: 1},
		{Lo: 0x267F, Hi: 0x267F, Stride: 1},
		{Lo: 0x2693, Hi: 0x2693, Stride: 1},
		{Lo: 0x26A1, Hi: 0x26A1, Stride: 1},
		{Lo: 0x26AA, Hi: 0x26AB, Stride: 1},
		{Lo: 0x26BD, Hi: 0x26BE, Stride: 1},
		{Lo: 0x26C4, Hi: 0x26C5, Stride: 1},
		{Lo: 0x26CE, Hi: 0x26CE, Stride: 1},
		{Lo: 0x26D4, Hi: 0x26D4, Stride: 1},
		{Lo: 0x26EA, Hi: 0x26EA, Stride: 1},
		{Lo: 0x26F2, Hi: 0x26F3, Stride: 1},
		{Lo: 0x26F5, Hi: 0x26F5, Stride: 1},
		{Lo: 0x26FA, Hi: 0x26FA, Stride: 1},
		{Lo: 0x26FD, Hi: 0x26FD, Stride: 1},
		{Lo: 0x2705, Hi: 0x2705, Stride: 1},
		{Lo: 0x270A, Hi: 0x270B, Stride: 1},
		{Lo: 0x2728, Hi: 0x2728, Stride: 1},
		{Lo: 0x274C, Hi: 0x274C, Stride: 1},
		{Lo: 0x274E, Hi: 0x274E, Stride: 1},
		{Lo: 0x2753, Hi: 0x2755, Stride: 1},
		{Lo: 0x2757, Hi: 0x2757, Stride: 1},
		{Lo: 0x2795, Hi: 0x2797, Stride: 1},
		{Lo: 0x27B0, Hi: 0x27B0, Stride: 1},
		{Lo: 0x27BF, Hi: 0x27BF, Stride: 1},
		{Lo: 0x2B1B, Hi: 0x2B1C, Stride: 1},
		{Lo: 0x2B50, Hi: 0x2B50, Stride: 1},
		{Lo: 0x2B55, Hi: 0x2B55, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x1F004, Hi: 0x1F004, Stride: 1},
		{Lo: 0x1F0CF, Hi: 0x1F0CF, Stride: 1},
		{Lo: 0x1F18E, Hi: 0x1F18E, Stride: 1},
		{Lo: 0x1F191, Hi: 0x1F19A, Stride: 1},
		{Lo: 0x1F1E6, Hi: 0x1F1FF, Stride: 1},
		{Lo: 0x1F201, Hi: 0x1F201, Stride: 1},
		{Lo: 0x1F21A, Hi: 0x1F21A, Stride: 1},
		{Lo: 0x1F22F, Hi: 0x1F22F, Stride: 1},
		{Lo: 0x1F232, Hi: 0x1F236, Stride: 1},
		{Lo: 0x1F238, Hi: 0x1F23A, Stride: 1},
		{Lo: 0x1F250, Hi: 0x1F251, Stride: 1},
		{Lo: 0x1F300, Hi: 0x1F64F, Stride: 1},
		{Lo: 0x1F680, Hi: 0x1F6FF, Stride: 1},
		{Lo: 0x1F7E0, Hi: 0x1F7F0, Stride: 1},
		{Lo: 0x1F900, Hi: 0x1FAFF, Stride: 1},
	},
}

// NormalizeWhitespace collapses horizontal whitespace runs to a single space,
// drops spaces hugging newlines, limits blank lines to one and trims.
func NormalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = horizontalSpace.ReplaceAllString(s, " ")
	s = spaceAroundNewline.ReplaceAllString(s, "\n")
	s = manyNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

type span struct{ start, end int }

// sentenceSpans returns byte ranges of the trimmed, non-empty sentences of s
// using Unicode sentence boundaries.
func sentenceSpans(s string) []span {
	var spans []span
	state := -1
	offset := 0
	rest := s
	for len(rest) > 0 {
		var sentence string
		sentence, rest, state = uniseg.FirstSentenceInString(rest, state)
		start := offset + len(sentence) - len(strings.TrimLeftFunc(sentence, unicode.IsSpace))
		end := offset + len(strings.TrimRightFunc(sentence, unicode.IsSpace))
		if end > start {
			spans = append(spans, span{start: start, end: end})
		}
		offset += len(sentence)
	}
	return spans
}

// SplitIntoSentences splits text at sentence boundaries. Any non-blank input
// yields at least one sentence.
func SplitIntoSentences(text string) []string {
	spans := sentenceSpans(text)
	out := make([]string, 0, len(spans))
	for _, sp := range spans {
		out = append(out, text[sp.start:sp.end])
	}
	return out
}

func isEmojiCluster(cluster string) bool {
	for i, r := range cluster {
		if i == 0 && unicode.Is(emojiPresentation, r) {
			return true
		}
		// Emoji presentation selector or combining keycap.
		if r == 0xFE0F || r == 0x20E3 {
			return true
		}
	}
	return false
}

// CountEmoji counts emoji grapheme clusters, so a flag, a keycap or a ZWJ
// family sequence each count once.
func CountEmoji(text string) int {
	n := 0
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		if isEmojiCluster(g.Str()) {
			n++
		}
	}
	return n
}

// StripTooManyEmojis removes the earliest emoji until at most max remain.
// Text already within the limit is returned untouched.
func StripTooManyEmojis(text string, max int) string {
	if max < 0 {
		max = 0
	}
	excess := CountEmoji(text) - max
	if excess <= 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		cluster := g.Str()
		if excess > 0 && isEmojiCluster(cluster) {
			excess--
			continue
		}
		b.WriteString(cluster)
	}
	return doubleSpace.ReplaceAllString(b.String(), " ")
}

// EnsureQuestionAtEnd appends fallback after a blank line unless text already
// asks something. Blank text becomes the fallback itself.
func EnsureQuestionAtEnd(text, fallback string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return fallback
	}
	if strings.Contains(trimmed, "?") {
		return text
	}
	return trimmed + "\n\n" + fallback
}

func flattenToOneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
