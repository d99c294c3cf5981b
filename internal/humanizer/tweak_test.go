package humanizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTweak(t *testing.T) {
	tw := DefaultConfig().Tweaks

	testCases := []struct {
		name     string
		input    []string
		stage    Stage
		emotion  Emotion
		expected []string
	}{
		{
			name:     "warm neutral is untouched",
			input:    []string{"Temos planos.", "Quer ver?"},
			stage:    StageWarm,
			emotion:  EmotionNeutral,
			expected: []string{"Temos planos.", "Quer ver?"},
		},
		{
			name:     "hot lead is asked to schedule",
			input:    []string{"Temos planos."},
			stage:    StageHot,
			emotion:  EmotionExcited,
			expected: []string{"Temos planos.\n\n" + tw.HotQuestion},
		},
		{
			name:     "hot question already in place",
			input:    []string{"Temos planos.\n\n" + tw.HotQuestion},
			stage:    StageHot,
			emotion:  EmotionNeutral,
			expected: []string{"Temos planos.\n\n" + tw.HotQuestion},
		},
		{
			name:     "cold question follows the reply's own question",
			input:    []string{"Oi.", "Temos planos. Quer ver?"},
			stage:    StageCold,
			emotion:  EmotionNeutral,
			expected: []string{"Oi.", "Temos planos. Quer ver?\n\n" + tw.ColdQuestion},
		},
		{
			name:     "skeptical gets disclaimer and proof question",
			input:    []string{"Claro.", "Quer ver?"},
			stage:    StageUnknown,
			emotion:  EmotionSkeptical,
			expected: []string{tw.TrustDisclaimer + "\nClaro.", "Quer ver?\n\n" + tw.ProofQuestion},
		},
		{
			name:     "skeptical single bubble",
			input:    []string{"Claro."},
			stage:    StageWarm,
			emotion:  EmotionSkeptical,
			expected: []string{tw.TrustDisclaimer + "\nClaro.\n\n" + tw.ProofQuestion},
		},
		{
			name:     "anxious reply is flattened to one line",
			input:    []string{"Fica tranquilo.\nVai dar certo."},
			stage:    StageWarm,
			emotion:  EmotionAnxious,
			expected: []string{"Fica tranquilo. Vai dar certo. " + tw.AnxiousQuestion},
		},
		{
			name:     "stage and emotion questions both apply, emotion closes",
			input:    []string{"Temos planos."},
			stage:    StageCold,
			emotion:  EmotionAnxious,
			expected: []string{"Temos planos. " + tw.ColdQuestion + " " + tw.AnxiousQuestion},
		},
		{
			name:     "anxious cold keeps the reply's question",
			input:    []string{"Temos 3 planos. Qual deles te interessa?"},
			stage:    StageCold,
			emotion:  EmotionAnxious,
			expected: []string{"Temos 3 planos. Qual deles te interessa? " + tw.ColdQuestion + " " + tw.AnxiousQuestion},
		},
		{
			name:     "skeptical warm keeps a question-only bubble",
			input:    []string{"Temos 3 planos.", "Qual te interessa mais?"},
			stage:    StageWarm,
			emotion:  EmotionSkeptical,
			expected: []string{tw.TrustDisclaimer + "\nTemos 3 planos.", "Qual te interessa mais?\n\n" + tw.ProofQuestion},
		},
		{
			name:     "hot skeptical appends scheduling then proof",
			input:    []string{"Temos planos."},
			stage:    StageHot,
			emotion:  EmotionSkeptical,
			expected: []string{tw.TrustDisclaimer + "\nTemos planos.\n\n" + tw.HotQuestion + "\n\n" + tw.ProofQuestion},
		},
		{
			name:     "empty list stays empty",
			input:    []string{},
			stage:    StageHot,
			emotion:  EmotionSkeptical,
			expected: []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Tweak(tc.input, tc.stage, tc.emotion, tw)
			assert.Equal(t, tc.expected, got)
			assert.LessOrEqual(t, len(got), len(tc.input), "tweak never adds bubbles")
		})
	}
}

func TestTweak_Idempotent(t *testing.T) {
	tw := DefaultConfig().Tweaks
	for _, stage := range []Stage{StageCold, StageHot, StageWarm, StageUnknown} {
		for _, emotion := range []Emotion{EmotionNeutral, EmotionAnxious, EmotionSkeptical, EmotionFrustrated, EmotionExcited} {
			once := Tweak([]string{"Claro, temos planos.", "Quer ver?"}, stage, emotion, tw)
			twice := Tweak(once, stage, emotion, tw)
			assert.Equal(t, once, twice, "stage=%s emotion=%s", stage, emotion)
		}
	}
}

func TestTweak_NeverRemovesReplyText(t *testing.T) {
	tw := DefaultConfig().Tweaks
	reply := []string{"Temos 3 planos.", "Qual deles te interessa?"}
	for _, stage := range []Stage{StageCold, StageHot, StageWarm, StageUnknown} {
		for _, emotion := range []Emotion{EmotionNeutral, EmotionAnxious, EmotionSkeptical, EmotionFrustrated, EmotionExcited} {
			got := Tweak(reply, stage, emotion, tw)
			assert.Contains(t, got[0], reply[0])
			assert.Contains(t, got[1], reply[1])
		}
	}
}

func TestTweak_DoesNotMutateInput(t *testing.T) {
	input := []string{"Temos planos."}
	_ = Tweak(input, StageHot, EmotionSkeptical, DefaultConfig().Tweaks)
	assert.Equal(t, []string{"Temos planos."}, input)
}

func TestAppendQuestion(t *testing.T) {
	assert.Equal(t, "Q?", appendQuestion("", "Q?", "\n\n", true))
	assert.Equal(t, "A. B? C?\n\nQ?", appendQuestion("A. B? C?", "Q?", "\n\n", true))
	assert.Equal(t, "A.", appendQuestion("A.", "  ", "\n\n", true), "a blank question leaves text alone")
	assert.Equal(t, "Q? A.", appendQuestion("Q? A.", "Q?", "\n\n", false), "present anywhere is enough when not closing")
	assert.Equal(t, "Q? A. Q?", appendQuestion("Q? A.", "Q?", " ", true))
}
