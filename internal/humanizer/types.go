// File: internal/humanizer/types.go
package humanizer

// Mode is the coarse response strategy chosen before any content is generated.
type Mode string

const (
	ModeFirstContact Mode = "FIRST_CONTACT"
	ModeBravo        Mode = "BRAVO"
	ModeBudget       Mode = "BUDGET"
	ModeHotCTA       Mode = "HOT_CTA"
	ModeSkeptical    Mode = "SKEPTICAL"
	ModeSingle       Mode = "SINGLE"
	ModeTwoBubbles   Mode = "TWO_BUBBLES"
)

// AllModes lists every Mode in selection priority order.
var AllModes = []Mode{
	ModeFirstContact,
	ModeBravo,
	ModeBudget,
	ModeHotCTA,
	ModeSkeptical,
	ModeSingle,
	ModeTwoBubbles,
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeFirstContact, ModeBravo, ModeBudget, ModeHotCTA, ModeSkeptical, ModeSingle, ModeTwoBubbles:
		return true
	}
	return false
}

// Emotion is the counterpart's detected emotional state.
type Emotion string

const (
	EmotionNeutral    Emotion = "neutral"
	EmotionAnxious    Emotion = "anxious"
	EmotionSkeptical  Emotion = "skeptical"
	EmotionFrustrated Emotion = "frustrated"
	EmotionExcited    Emotion = "excited"
)

// Intention is the conversational intention reported by the upstream classifier.
type Intention string

const (
	IntentionFirstContact Intention = "primeiro_contato"
	IntentionAngryClient  Intention = "cliente_bravo"
	IntentionBudget       Intention = "orcamento"
	IntentionScheduling   Intention = "agendamento"
	IntentionOther        Intention = "outros"
)

// Stage is the funnel temperature of the conversation.
type Stage string

const (
	StageCold    Stage = "cold"
	StageWarm    Stage = "warm"
	StageHot     Stage = "hot"
	StageUnknown Stage = "unknown"
)

// Input carries everything a single humanize call needs besides configuration.
// The classifier tokens are expected to be normalized already; use
// NewInput to build one from raw upstream strings.
type Input struct {
	Text      string
	Emotion   Emotion
	Intention Intention
	Stage     Stage
}

// NewInput normalizes raw classifier tokens at the ingestion boundary.
func NewInput(text, emotion, intention, stage string) Input {
	return Input{
		Text:      text,
		Emotion:   ParseEmotion(emotion),
		Intention: ParseIntention(intention),
		Stage:     ParseStage(stage),
	}
}
