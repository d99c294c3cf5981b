package humanizer

// PickMode selects the response strategy. The first matching rule wins and
// intention-based triggers always outrank stage and emotion.
func PickMode(intention Intention, emotion Emotion, stage Stage) Mode {
	switch intention {
	case IntentionFirstContact:
		return ModeFirstContact
	case IntentionAngryClient:
		return ModeBravo
	case IntentionBudget:
		return ModeBudget
	case IntentionScheduling, IntentionOther:
	}

	if stage == StageHot {
		return ModeHotCTA
	}

	switch emotion {
	case EmotionSkeptical:
		return ModeSkeptical
	case EmotionAnxious:
		return ModeSingle
	case EmotionNeutral, EmotionFrustrated, EmotionExcited:
	}

	if intention == IntentionScheduling {
		return ModeSingle
	}
	return ModeTwoBubbles
}
