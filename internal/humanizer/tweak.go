package humanizer

import "strings"

// Tweak applies the stage rule and then the emotion rule to the bubbles. It
// never adds bubbles and never removes text: each rule appends its question
// to the last bubble, so when both apply the emotion question closes it.
// Appending may push a bubble past the Enforce caps; ending on something
// actionable takes priority.
func Tweak(bubbles []string, stage Stage, emotion Emotion, t TweakConfig) []string {
	out := append([]string(nil), bubbles...)
	if len(out) == 0 {
		return out
	}
	last := len(out) - 1

	// A following emotion rule owns the final slot, so the stage question
	// only has to be present somewhere in the bubble.
	emotionCloses := emotion == EmotionSkeptical || emotion == EmotionAnxious

	switch stage {
	case StageHot:
		out[last] = appendQuestion(out[last], t.HotQuestion, "\n\n", !emotionCloses)
	case StageCold:
		out[last] = appendQuestion(out[last], t.ColdQuestion, "\n\n", !emotionCloses)
	case StageWarm, StageUnknown:
	}

	switch emotion {
	case EmotionSkeptical:
		out[last] = appendQuestion(out[last], t.ProofQuestion, "\n\n", true)
		out[0] = prependLine(out[0], t.TrustDisclaimer)
	case EmotionAnxious:
		out[last] = appendQuestion(flattenToOneLine(out[last]), t.AnxiousQuestion, " ", true)
	case EmotionNeutral, EmotionFrustrated, EmotionExcited:
	}
	return out
}

// appendQuestion appends question to text after sep. It is a no-op when text
// already ends with question or, unless mustEnd, already contains it.
func appendQuestion(text, question, sep string, mustEnd bool) string {
	text = strings.TrimSpace(text)
	question = strings.TrimSpace(question)
	if question == "" || strings.HasSuffix(text, question) {
		return text
	}
	if !mustEnd && strings.Contains(text, question) {
		return text
	}
	if text == "" {
		return question
	}
	return text + sep + question
}

func prependLine(text, line string) string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(text, line) {
		return text
	}
	return line + "\n" + text
}
