package humanizer

import (
	"math"
	"unicode/utf8"
)

// maxDelayMs bounds any single delay so the int conversion cannot overflow.
const maxDelayMs = math.MaxInt32

// DelayMs is how long a sender should wait, typing, before posting text:
// base plus a per-character cost, clamped to [base, cap], scaled by
// multiplier. Length is counted in runes.
func DelayMs(text string, d DelayConfig, multiplier float64) int {
	raw := d.Base + float64(utf8.RuneCountInString(text))*d.PerChar
	clamped := math.Min(math.Max(raw, d.Base), d.Cap)
	return toDelayMs(clamped * multiplier)
}

// toDelayMs rounds v to whole milliseconds, saturating at 0 and maxDelayMs.
func toDelayMs(v float64) int {
	v = math.Round(v)
	switch {
	case !(v >= 0):
		return 0
	case v > maxDelayMs:
		return maxDelayMs
	}
	return int(v)
}

// ResolveMultiplier picks the cadence multiplier for an emotion: anxious
// leads get faster replies, skeptical ones more deliberate replies.
func ResolveMultiplier(emotion Emotion, d DelayConfig) float64 {
	switch emotion {
	case EmotionAnxious:
		return d.AnxiousMultiplier
	case EmotionSkeptical:
		return d.SkepticalMultiplier
	case EmotionFrustrated:
		return d.FrustratedMultiplier
	case EmotionExcited:
		return d.ExcitedMultiplier
	case EmotionNeutral:
	}
	return 1.0
}
