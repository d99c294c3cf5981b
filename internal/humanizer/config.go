// File: internal/humanizer/config.go
package humanizer

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	json "github.com/json-iterator/go"
)

var (
	// ErrConfigFetch wraps failures talking to the settings backend.
	ErrConfigFetch = errors.New("humanizer: config fetch failed")
	// ErrConfigShape wraps documents that are not a valid JSON config object.
	ErrConfigShape = errors.New("humanizer: malformed config document")
	// ErrInvalidConfig is returned by Validate when a leaf violates an invariant.
	ErrInvalidConfig = errors.New("humanizer: invalid config")
)

// Config is the full engine configuration as stored under the
// agent_humanizer_config setting. Every leaf always holds a value: documents
// are decoded onto DefaultConfig and then sanitized.
type Config struct {
	Rules  RulesConfig `json:"rules"`
	Delay  DelayConfig `json:"delay"`
	Modes  ModesConfig `json:"modes"`
	Tweaks TweakConfig `json:"tweaks"`
}

// RulesConfig caps the shape of every plan.
type RulesConfig struct {
	MaxBubbles            int    `json:"maxBubbles"`
	MaxSentencesPerBubble int    `json:"maxSentencesPerBubble"`
	MaxEmojiPerBubble     int    `json:"maxEmojiPerBubble"`
	DefaultQuestion       string `json:"defaultQuestion"`
}

// DelayConfig drives the typing cadence. Values are milliseconds.
type DelayConfig struct {
	Base                 float64 `json:"base"`
	PerChar              float64 `json:"perChar"`
	Cap                  float64 `json:"cap"`
	AnxiousMultiplier    float64 `json:"anxiousMultiplier"`
	SkepticalMultiplier  float64 `json:"skepticalMultiplier"`
	FrustratedMultiplier float64 `json:"frustratedMultiplier"`
	ExcitedMultiplier    float64 `json:"excitedMultiplier"`
	// InterBubble is the pause before the typing indicator of every bubble but the first.
	InterBubble float64 `json:"interBubble"`
}

// ModesConfig holds operator overrides per Mode.
type ModesConfig struct {
	Templates map[Mode][]string `json:"templates"`
	Rules     ModeRules         `json:"rules"`
}

// ModeRules overrides RulesConfig fields for mode-driven content.
type ModeRules struct {
	DefaultQuestion string `json:"defaultQuestion"`
}

// TweakConfig holds the canned lines used by the stage and emotion tweaks.
type TweakConfig struct {
	TrustDisclaimer string `json:"trustDisclaimer"`
	ProofQuestion   string `json:"proofQuestion"`
	AnxiousQuestion string `json:"anxiousQuestion"`
	HotQuestion     string `json:"hotQuestion"`
	ColdQuestion    string `json:"coldQuestion"`
	ClarifyingLead  string `json:"clarifyingLead"`
}

// DefaultConfig returns a fresh copy of the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Rules: RulesConfig{
			MaxBubbles:            2,
			MaxSentencesPerBubble: 2,
			MaxEmojiPerBubble:     1,
			DefaultQuestion:       "Como posso te ajudar?",
		},
		Delay: DelayConfig{
			Base:                 450,
			PerChar:              12,
			Cap:                  2000,
			AnxiousMultiplier:    0.6,
			SkepticalMultiplier:  1.15,
			FrustratedMultiplier: 1.0,
			ExcitedMultiplier:    0.9,
			InterBubble:          250,
		},
		Modes: ModesConfig{
			Templates: map[Mode][]string{},
		},
		Tweaks: TweakConfig{
			TrustDisclaimer: "Entendo a cautela, é normal querer ter segurança antes de decidir.",
			ProofQuestion:   "Quer que eu te mostre um exemplo real de um cliente que já usa?",
			AnxiousQuestion: "Qual é a sua principal dúvida agora?",
			HotQuestion:     "Qual o melhor dia e horário pra gente agendar?",
			ColdQuestion:    "Me conta um pouco sobre o seu negócio, o que você busca hoje?",
			ClarifyingLead:  "Quero entender melhor o que você precisa.",
		},
	}
}

// DefaultQuestion returns the mode-level question when set, else the rules one.
func (c Config) DefaultQuestion() string {
	if q := strings.TrimSpace(c.Modes.Rules.DefaultQuestion); q != "" {
		return q
	}
	return c.Rules.DefaultQuestion
}

// Clone returns a deep copy so cached values are never shared with callers.
func (c Config) Clone() Config {
	out := c
	out.Modes.Templates = make(map[Mode][]string, len(c.Modes.Templates))
	for m, bubbles := range c.Modes.Templates {
		out.Modes.Templates[m] = append([]string(nil), bubbles...)
	}
	return out
}

// DecodeConfig decodes a settings document onto DefaultConfig, so absent
// leaves keep their default. Blank and "null" documents yield the defaults.
// The result is not sanitized; see Sanitize.
func DecodeConfig(raw string) (Config, error) {
	cfg := DefaultConfig()
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(trimmed), &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("%w: %v", ErrConfigShape, err)
	}
	return cfg, nil
}

// Upper bounds on delay settings. Values beyond them are treated as invalid.
const (
	// MaxDelayValue caps delay.base, delay.cap and delay.interBubble, in ms.
	MaxDelayValue = 60000
	MaxPerChar    = 1000
	MaxMultiplier = 10
)

// Sanitize replaces every leaf that breaks an invariant with its default and
// reports the dotted names of the fields it touched.
func (c Config) Sanitize() (Config, []string) {
	d := DefaultConfig()
	out := c.Clone()
	var fixed []string

	atLeast := func(name string, v *int, min, def int) {
		if *v < min {
			fixed = append(fixed, name)
			*v = def
		}
	}
	positive := func(name string, v *float64, max, def float64) {
		if !finite(*v) || *v <= 0 || *v > max {
			fixed = append(fixed, name)
			*v = def
		}
	}
	nonNegative := func(name string, v *float64, max, def float64) {
		if !finite(*v) || *v < 0 || *v > max {
			fixed = append(fixed, name)
			*v = def
		}
	}
	text := func(name string, v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			fixed = append(fixed, name)
			*v = def
		}
	}

	atLeast("rules.maxBubbles", &out.Rules.MaxBubbles, 1, d.Rules.MaxBubbles)
	atLeast("rules.maxSentencesPerBubble", &out.Rules.MaxSentencesPerBubble, 1, d.Rules.MaxSentencesPerBubble)
	atLeast("rules.maxEmojiPerBubble", &out.Rules.MaxEmojiPerBubble, 0, d.Rules.MaxEmojiPerBubble)
	text("rules.defaultQuestion", &out.Rules.DefaultQuestion, d.Rules.DefaultQuestion)

	positive("delay.base", &out.Delay.Base, MaxDelayValue, d.Delay.Base)
	nonNegative("delay.perChar", &out.Delay.PerChar, MaxPerChar, d.Delay.PerChar)
	positive("delay.cap", &out.Delay.Cap, MaxDelayValue, d.Delay.Cap)
	if out.Delay.Cap < out.Delay.Base {
		fixed = append(fixed, "delay.cap")
		out.Delay.Cap = math.Max(d.Delay.Cap, out.Delay.Base)
	}
	positive("delay.anxiousMultiplier", &out.Delay.AnxiousMultiplier, MaxMultiplier, d.Delay.AnxiousMultiplier)
	positive("delay.skepticalMultiplier", &out.Delay.SkepticalMultiplier, MaxMultiplier, d.Delay.SkepticalMultiplier)
	positive("delay.frustratedMultiplier", &out.Delay.FrustratedMultiplier, MaxMultiplier, d.Delay.FrustratedMultiplier)
	positive("delay.excitedMultiplier", &out.Delay.ExcitedMultiplier, MaxMultiplier, d.Delay.ExcitedMultiplier)
	nonNegative("delay.interBubble", &out.Delay.InterBubble, MaxDelayValue, d.Delay.InterBubble)

	text("tweaks.trustDisclaimer", &out.Tweaks.TrustDisclaimer, d.Tweaks.TrustDisclaimer)
	text("tweaks.proofQuestion", &out.Tweaks.ProofQuestion, d.Tweaks.ProofQuestion)
	text("tweaks.anxiousQuestion", &out.Tweaks.AnxiousQuestion, d.Tweaks.AnxiousQuestion)
	text("tweaks.hotQuestion", &out.Tweaks.HotQuestion, d.Tweaks.HotQuestion)
	text("tweaks.coldQuestion", &out.Tweaks.ColdQuestion, d.Tweaks.ColdQuestion)
	text("tweaks.clarifyingLead", &out.Tweaks.ClarifyingLead, d.Tweaks.ClarifyingLead)

	templates := make(map[Mode][]string, len(out.Modes.Templates))
	for key, bubbles := range out.Modes.Templates {
		mode, ok := ParseMode(string(key))
		if !ok {
			fixed = append(fixed, "modes.templates."+string(key))
			continue
		}
		templates[mode] = bubbles
	}
	out.Modes.Templates = templates

	sort.Strings(fixed)
	return out, fixed
}

// Validate reports every invariant violation in c.
func (c Config) Validate() error {
	if _, fixed := c.Sanitize(); len(fixed) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fixed, ", "))
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Canonicalize turns an operator-supplied document into the form that gets
// stored: merged onto the defaults, validated, and re-encoded in full. Unlike
// the read path it rejects bad documents instead of repairing them.
func Canonicalize(raw string) (Config, string, error) {
	if strings.TrimSpace(raw) == "" {
		return Config{}, "", fmt.Errorf("%w: empty document", ErrConfigShape)
	}
	cfg, err := DecodeConfig(raw)
	if err != nil {
		return Config{}, "", err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, "", err
	}
	// Sanitize also canonicalizes template keys.
	cfg, _ = cfg.Sanitize()

	doc, err := json.Marshal(cfg)
	if err != nil {
		return Config{}, "", fmt.Errorf("encode config: %w", err)
	}
	return cfg, string(doc), nil
}
