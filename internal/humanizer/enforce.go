package humanizer

import "strings"

// Enforce applies the configured caps to any bubble list, generated or
// operator supplied. It drops blank bubbles, keeps the first MaxBubbles,
// cuts each bubble after MaxSentencesPerBubble sentences and trims emoji down
// to MaxEmojiPerBubble. Enforce is idempotent.
func Enforce(bubbles []string, rules RulesConfig) []string {
	kept := make([]string, 0, len(bubbles))
	for _, b := range bubbles {
		if nb := NormalizeWhitespace(b); nb != "" {
			kept = append(kept, nb)
		}
	}
	if rules.MaxBubbles > 0 && len(kept) > rules.MaxBubbles {
		kept = kept[:rules.MaxBubbles]
	}

	out := make([]string, 0, len(kept))
	for _, b := range kept {
		b = capSentences(b, rules.MaxSentencesPerBubble)
		b = NormalizeWhitespace(StripTooManyEmojis(b, rules.MaxEmojiPerBubble))
		// A bubble made only of emoji can vanish here.
		if b != "" {
			out = append(out, b)
		}
	}
	return out
}

// capSentences cuts b right after its max-th sentence, preserving the
// original line breaks of what is kept.
func capSentences(b string, max int) string {
	if max <= 0 {
		return b
	}
	spans := sentenceSpans(b)
	if len(spans) <= max {
		return b
	}
	return strings.TrimSpace(b[:spans[max-1].end])
}
