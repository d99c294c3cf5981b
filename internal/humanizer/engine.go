// File: internal/humanizer/engine.go
package humanizer

import (
	"context"

	"go.uber.org/zap"
)

// ConfigSource supplies the configuration for a humanize call. It must
// never fail; ConfigStore falls back to DefaultConfig on any error.
type ConfigSource interface {
	Get(ctx context.Context) Config
}

// StaticConfig is a ConfigSource that always returns the same configuration.
type StaticConfig Config

// Get implements ConfigSource.
func (s StaticConfig) Get(context.Context) Config { return Config(s).Clone() }

// Engine builds message plans from raw model answers.
type Engine struct {
	configs ConfigSource
	log     *zap.Logger
}

// NewEngine creates an Engine. A nil source serves DefaultConfig.
func NewEngine(configs ConfigSource, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if configs == nil {
		configs = StaticConfig(DefaultConfig())
	}
	return &Engine{
		configs: configs,
		log:     logger.Named("humanizer"),
	}
}

// Humanize resolves the current configuration and assembles the plan for in.
// It always returns a usable plan.
func (e *Engine) Humanize(ctx context.Context, in Input) *Plan {
	cfg := e.configs.Get(ctx)
	plan := Assemble(cfg, in)
	e.log.Debug("Assembled message plan",
		zap.String("mode", string(plan.Meta.Mode)),
		zap.String("emotion", string(plan.Meta.Emotion)),
		zap.String("intention", string(plan.Meta.Intention)),
		zap.String("stage", string(plan.Meta.Stage)),
		zap.Int("bubbles", len(plan.Bubbles)),
		zap.Int("total_delay_ms", plan.TotalDelayMs()),
	)
	return plan
}

// Assemble is the pure pipeline: pick mode, build, enforce, tweak, time.
func Assemble(cfg Config, in Input) *Plan {
	in = Input{
		Text:      in.Text,
		Emotion:   ParseEmotion(string(in.Emotion)),
		Intention: ParseIntention(string(in.Intention)),
		Stage:     ParseStage(string(in.Stage)),
	}

	mode := PickMode(in.Intention, in.Emotion, in.Stage)
	clarifying := cfg.ClarifyingBubble()

	bubbles := BuildBubbles(mode, cfg.Modes.Templates, in.Text, clarifying)
	bubbles = Enforce(bubbles, cfg.Rules)
	if len(bubbles) == 0 {
		// Every template bubble was blank.
		bubbles = []string{clarifying}
	}
	bubbles = Tweak(bubbles, in.Stage, in.Emotion, cfg.Tweaks)

	multiplier := ResolveMultiplier(in.Emotion, cfg.Delay)
	interBubble := toDelayMs(cfg.Delay.InterBubble)

	items := make([]PlanItem, 0, len(bubbles)*3)
	for i, b := range bubbles {
		pause := 0
		if i > 0 {
			pause = interBubble
		}
		items = append(items,
			PlanItem{Kind: ItemTyping, Action: TypingStart, DelayMs: pause},
			PlanItem{Kind: ItemText, Text: b, DelayMs: DelayMs(b, cfg.Delay, multiplier)},
			PlanItem{Kind: ItemTyping, Action: TypingStop, DelayMs: 0},
		)
	}

	return &Plan{
		Items:   items,
		Bubbles: bubbles,
		Meta: PlanMeta{
			Mode:      mode,
			Emotion:   in.Emotion,
			Intention: in.Intention,
			Stage:     in.Stage,
		},
	}
}
