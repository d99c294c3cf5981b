// File: internal/adminapi/types.go
package adminapi

import (
	"context"

	"github.com/xkilldash9x/wa-humanizer/internal/humanizer"
)

// Response is the envelope of every API reply.
type Response struct {
	Status string      `json:"status"` // "success" or "error"
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// PreviewRequest carries a raw model answer and the classifier tokens, as
// upstream services send them.
type PreviewRequest struct {
	Text      string `json:"text"`
	Emotion   string `json:"emotion"`
	Intention string `json:"intention"`
	Stage     string `json:"stage"`
}

// PreviewResult is the plan computed for a PreviewRequest.
type PreviewResult struct {
	PreviewID string          `json:"preview_id"`
	Plan      *humanizer.Plan `json:"plan"`
}

// ConfigResult reports the effective configuration and where it came from.
type ConfigResult struct {
	Key    string           `json:"key"`
	Config humanizer.Config `json:"config"`
}

// Humanizer builds plans. Satisfied by *humanizer.Engine.
type Humanizer interface {
	Humanize(ctx context.Context, in humanizer.Input) *humanizer.Plan
}

// ConfigCache serves and invalidates the cached configuration. Satisfied by
// *humanizer.ConfigStore.
type ConfigCache interface {
	Get(ctx context.Context) humanizer.Config
	Invalidate()
	Key() string
}

// SettingsWriter persists configuration documents. Satisfied by *store.Store.
type SettingsWriter interface {
	SetSettingValue(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}
