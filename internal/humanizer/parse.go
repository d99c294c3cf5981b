package humanizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Classifier tokens arrive as free text from upstream services, so the
// parsers below match hints at word starts and accept Portuguese synonyms.
// Everything past this boundary switches over the closed types only.

var (
	emotionHints = []struct {
		emotion Emotion
		hints   []string
	}{
		{EmotionAnxious, []string{"anxious", "anxiety", "ansios", "ansiedade", "nervos", "preocupad", "aflit"}},
		{EmotionSkeptical, []string{"skeptic", "sceptic", "cetic", "desconfi", "duvidos", "suspicious"}},
		{EmotionFrustrated, []string{"frustrat", "frustrad", "angry", "irritad", "raiva", "chatead"}},
		{EmotionExcited, []string{"excit", "empolgad", "animad", "entusiasm", "feliz"}},
	}

	intentionHints = []struct {
		intention Intention
		hints     []string
	}{
		{IntentionFirstContact, []string{"primeiro_contato", "first_contact", "saudacao", "greeting"}},
		{IntentionAngryClient, []string{"cliente_bravo", "bravo", "angry_client", "reclamacao", "complaint"}},
		{IntentionBudget, []string{"orcamento", "budget", "quote", "preco", "pricing", "price"}},
		{IntentionScheduling, []string{"agendamento", "agendar", "schedul", "booking", "reuniao", "meeting"}},
	}

	stageHints = []struct {
		stage Stage
		hints []string
	}{
		{StageCold, []string{"cold", "frio", "fria"}},
		{StageWarm, []string{"warm", "morno", "morna"}},
		{StageHot, []string{"hot", "quente"}},
	}

	// negators flip a following emotion word back to neutral.
	negators = map[string]bool{"not": true, "non": true, "nao": true, "sem": true, "nunca": true, "never": true, "without": true}
)

// fold lower-cases s and strips diacritics so "Orçamento" matches "orcamento".
func fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	// Chained transformers keep state, so each call builds its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// tokenize folds s and turns separators into underscores.
func tokenize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '.' || r == '/' {
			return '_'
		}
		return r
	}, fold(s))
}

// words splits a tokenized string into its letter runs.
func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
}

// hasWordStart reports whether some hint begins a word of s. Hints may span
// words ("first_contact").
func hasWordStart(s string, hints []string) bool {
	for _, h := range hints {
		if strings.HasPrefix(s, h) || strings.Contains(s, "_"+h) {
			return true
		}
	}
	return false
}

// ParseEmotion maps a raw classifier token to an Emotion. Unknown input is neutral.
func ParseEmotion(raw string) Emotion {
	s := tokenize(raw)
	if s == "" {
		return EmotionNeutral
	}
	for _, e := range emotionHints {
		if s == string(e.emotion) {
			return e.emotion
		}
	}
	ws := words(s)
	for _, e := range emotionHints {
		for i, w := range ws {
			for _, h := range e.hints {
				if !strings.HasPrefix(w, h) {
					continue
				}
				if i > 0 && negators[ws[i-1]] {
					return EmotionNeutral
				}
				return e.emotion
			}
		}
	}
	return EmotionNeutral
}

// ParseIntention maps a raw classifier token to an Intention. Unknown input is outros.
func ParseIntention(raw string) Intention {
	s := tokenize(raw)
	if s == "" {
		return IntentionOther
	}
	for _, i := range intentionHints {
		if s == string(i.intention) {
			return i.intention
		}
	}
	for _, i := range intentionHints {
		if hasWordStart(s, i.hints) {
			return i.intention
		}
	}
	return IntentionOther
}

// ParseStage maps a raw funnel token to a Stage. Unknown input is StageUnknown.
func ParseStage(raw string) Stage {
	s := tokenize(raw)
	if s == "" {
		return StageUnknown
	}
	for _, st := range stageHints {
		if s == string(st.stage) {
			return st.stage
		}
	}
	// Match whole words first so "photo" never reads as hot.
	for _, st := range stageHints {
		for _, w := range words(s) {
			for _, h := range st.hints {
				if w == h || (strings.HasPrefix(w, h) && len(w) <= len(h)+1) {
					return st.stage
				}
			}
		}
	}
	return StageUnknown
}

// ParseMode resolves a template key such as "two_bubbles" or "HOT-CTA".
func ParseMode(raw string) (Mode, bool) {
	m := Mode(strings.ToUpper(tokenize(raw)))
	return m, m.Valid()
}
