package humanizer

import (
	"strings"
	"testing"
	"unicode/utf8"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
)

func defaultRules() RulesConfig {
	return DefaultConfig().Rules
}

func TestEnforce(t *testing.T) {
	testCases := []struct {
		name     string
		input    []string
		rules    func(r *RulesConfig)
		expected []string
	}{
		{
			name:     "four template entries collapse to the bubble cap",
			input:    []string{"Um.", "Dois.", "Três.", "Quatro."},
			expected: []string{"Um.", "Dois."},
		},
		{
			name:     "blank bubbles are dropped before the cap",
			input:    []string{"", "  \n", "A.", "B.", "C."},
			expected: []string{"A.", "B."},
		},
		{
			name:     "sentences beyond the cap are cut",
			input:    []string{"Um. Dois. Três."},
			expected: []string{"Um. Dois."},
		},
		{
			name:     "line breaks inside a kept bubble survive",
			input:    []string{"Linha um.\nLinha dois."},
			expected: []string{"Linha um.\nLinha dois."},
		},
		{
			name:     "earliest emoji are removed",
			input:    []string{"Oi 😀😃 tudo"},
			expected: []string{"Oi 😃 tudo"},
		},
		{
			name:     "emoji-only bubble vanishes",
			input:    []string{"😀", "Oi"},
			rules:    func(r *RulesConfig) { r.MaxEmojiPerBubble = 0 },
			expected: []string{"Oi"},
		},
		{
			name:     "whitespace is normalized",
			input:    []string{"  Olá   mundo. "},
			expected: []string{"Olá mundo."},
		},
		{
			name:     "single sentence cap",
			input:    []string{"Temos planos. Quer ver?"},
			rules:    func(r *RulesConfig) { r.MaxSentencesPerBubble = 1 },
			expected: []string{"Temos planos."},
		},
		{
			name:     "nothing in, nothing out",
			input:    nil,
			expected: []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rules := defaultRules()
			if tc.rules != nil {
				tc.rules(&rules)
			}
			got := Enforce(tc.input, rules)
			assert.Equal(t, tc.expected, got)
			assert.Equal(t, got, Enforce(got, rules), "enforce must be idempotent")
		})
	}
}

func TestEnforce_DoesNotMutateInput(t *testing.T) {
	input := []string{" a ", "b", "c"}
	_ = Enforce(input, defaultRules())
	assert.Equal(t, []string{" a ", "b", "c"}, input)
}

// FuzzEnforce_Structured checks the caps hold for arbitrary bubble lists.
func FuzzEnforce_Structured(f *testing.F) {
	f.Add([]byte("Um. Dois. Três."))
	f.Add([]byte("😀😃😄 fim\n\n\n outra. linha?"))
	f.Add([]byte{0x02, 0x00, 0x01, 0x41, 0x2e, 0x20, 0x42, 0x2e})

	f.Fuzz(func(t *testing.T, data []byte) {
		consumer := fuzz.NewConsumer(data)
		var bubbles []string
		if err := consumer.CreateSlice(&bubbles); err != nil {
			return
		}
		for _, b := range bubbles {
			if !utf8.ValidString(b) {
				return
			}
		}
		maxBubbles, err := consumer.GetInt()
		if err != nil {
			maxBubbles = 2
		}
		maxEmoji, err := consumer.GetInt()
		if err != nil {
			maxEmoji = 1
		}
		rules := RulesConfig{
			MaxBubbles:            abs(maxBubbles%5) + 1,
			MaxSentencesPerBubble: 2,
			MaxEmojiPerBubble:     abs(maxEmoji % 3),
			DefaultQuestion:       "Como posso te ajudar?",
		}

		defer func() {
			if r := recover(); r != nil {
				t.Errorf("Enforce panicked: %v", r)
			}
		}()

		got := Enforce(bubbles, rules)
		assert.LessOrEqual(t, len(got), rules.MaxBubbles)
		for _, b := range got {
			assert.NotEmpty(t, strings.TrimSpace(b))
			assert.LessOrEqual(t, CountEmoji(b), rules.MaxEmojiPerBubble)
		}
	})
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
