package humanizer

import "strings"

const (
	// leadSentences is how many sentences the opening bubble carries.
	leadSentences = 2
	// buildEmojiCap bounds emoji per generated bubble before the configured caps apply.
	buildEmojiCap = 1
)

// ClarifyingBubble is the prompt used when there is nothing (or nothing more)
// to say: the clarifying lead followed by the default question.
func (c Config) ClarifyingBubble() string {
	bubble := EnsureQuestionAtEnd(c.Tweaks.ClarifyingLead, c.DefaultQuestion())
	if strings.TrimSpace(bubble) == "" {
		d := DefaultConfig()
		return EnsureQuestionAtEnd(d.Tweaks.ClarifyingLead, d.DefaultQuestion())
	}
	return bubble
}

// BuildBubbles turns raw model text into candidate bubbles for mode. An
// operator template registered for mode is returned verbatim. Blank text
// yields the single clarifying bubble, never an empty list.
func BuildBubbles(mode Mode, templates map[Mode][]string, rawText, clarifying string) []string {
	if tpl := templates[mode]; len(tpl) > 0 {
		return append([]string(nil), tpl...)
	}

	sentences := SplitIntoSentences(NormalizeWhitespace(rawText))
	if len(sentences) == 0 {
		return []string{clarifying}
	}

	head, tail := sentences, []string(nil)
	if len(sentences) > leadSentences {
		head, tail = sentences[:leadSentences], sentences[leadSentences:]
	}
	first := StripTooManyEmojis(strings.Join(head, " "), buildEmojiCap)

	switch mode {
	case ModeSingle:
		return []string{first}
	case ModeFirstContact, ModeBravo, ModeBudget, ModeHotCTA, ModeSkeptical, ModeTwoBubbles:
	}

	second := StripTooManyEmojis(strings.Join(tail, " "), buildEmojiCap)
	if strings.TrimSpace(second) == "" {
		second = clarifying
	}
	return []string{first, second}
}
