// File: internal/humanizer/plan.go
package humanizer

import "strings"

// ItemKind tags a PlanItem.
type ItemKind string

const (
	ItemTyping ItemKind = "typing"
	ItemText   ItemKind = "text"
)

// TypingAction toggles the typing indicator.
type TypingAction string

const (
	TypingStart TypingAction = "start"
	TypingStop  TypingAction = "stop"
)

// PlanItem is one step of a plan. A sender waits DelayMs and then performs
// the side effect: toggling the typing indicator (Kind typing) or posting
// Text as a bubble (Kind text). Items must run strictly in order.
type PlanItem struct {
	Kind    ItemKind     `json:"type"`
	Action  TypingAction `json:"action,omitempty"`
	Text    string       `json:"text,omitempty"`
	DelayMs int          `json:"delayMs"`
}

// PlanMeta records the normalized inputs and the chosen mode.
type PlanMeta struct {
	Mode      Mode      `json:"mode"`
	Emotion   Emotion   `json:"emotion"`
	Intention Intention `json:"intention"`
	Stage     Stage     `json:"stage"`
}

// Plan is the timed delivery plan for one answer. Items is canonical;
// Bubbles is always populated for senders that post plain messages.
type Plan struct {
	Items   []PlanItem `json:"items"`
	Bubbles []string   `json:"bubbles"`
	Meta    PlanMeta   `json:"meta"`
}

// TextCount returns the number of text items.
func (p *Plan) TextCount() int {
	n := 0
	for _, it := range p.Items {
		if it.Kind == ItemText {
			n++
		}
	}
	return n
}

// Joined renders the bubbles as a single message for legacy senders.
func (p *Plan) Joined(sep string) string {
	return strings.Join(p.Bubbles, sep)
}

// First returns the first bubble, or "" for an empty plan.
func (p *Plan) First() string {
	if len(p.Bubbles) == 0 {
		return ""
	}
	return p.Bubbles[0]
}

// TotalDelayMs sums every wait in the plan.
func (p *Plan) TotalDelayMs() int {
	total := 0
	for _, it := range p.Items {
		total += it.DelayMs
	}
	return total
}
