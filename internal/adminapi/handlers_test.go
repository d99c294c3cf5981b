package adminapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wa-humanizer/internal/config"
	"github.com/xkilldash9x/wa-humanizer/internal/humanizer"
)

// memorySettings is an in-memory settings backend, readable by the config
// store and writable by the handlers.
type memorySettings struct {
	mu       sync.Mutex
	values   map[string]string
	reads    int
	writeErr error
}

func newMemorySettings() *memorySettings {
	return &memorySettings{values: map[string]string{}}
}

func (m *memorySettings) GetSettingValue(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memorySettings) SetSettingValue(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.values[key] = value
	return nil
}

func (m *memorySettings) DeleteSetting(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	delete(m.values, key)
	return nil
}

func (m *memorySettings) readCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

type envelope struct {
	Status string              `json:"status"`
	Data   jsoniter.RawMessage `json:"data"`
	Error  string              `json:"error"`
}

func testAdminConfig() config.AdminConfig {
	return config.AdminConfig{
		ListenAddr:     "127.0.0.1:0",
		RateLimit:      1000,
		RateBurst:      1000,
		RequestTimeout: 5 * time.Second,
	}
}

// setupServer builds a server over an in-memory backend. A nil settings
// argument makes the config read-only.
func setupServer(t *testing.T, cfg config.AdminConfig, settings *memorySettings) (*Server, *humanizer.ConfigStore) {
	t.Helper()
	var source humanizer.SettingsSource
	var writer SettingsWriter
	if settings != nil {
		source, writer = settings, settings
	}
	configs := humanizer.NewConfigStore(source)
	engine := humanizer.NewEngine(configs, zap.NewNop())
	handlers := NewHandlers(zap.NewNop(), engine, configs, writer)
	return NewServer(cfg, handlers, zap.NewNop()), configs
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

// -- Test Cases --

func TestHealthCheck(t *testing.T) {
	srv, _ := setupServer(t, testAdminConfig(), nil)
	rec, _ := do(t, srv.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestHandlePreview(t *testing.T) {
	srv, _ := setupServer(t, testAdminConfig(), newMemorySettings())

	t.Run("returns the plan", func(t *testing.T) {
		body := `{"text":"Claro, temos 3 planos: básico, pro e enterprise.","emotion":"skeptical","intention":"outros","stage":"cold"}`
		rec, env := do(t, srv.Handler(), http.MethodPost, "/api/v1/humanizer/preview", body)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "success", env.Status)

		var result PreviewResult
		require.NoError(t, json.Unmarshal(env.Data, &result))
		_, err := uuid.Parse(result.PreviewID)
		assert.NoError(t, err, "preview IDs are UUIDs")
		require.NotNil(t, result.Plan)
		assert.Equal(t, humanizer.ModeSkeptical, result.Plan.Meta.Mode)
		assert.Len(t, result.Plan.Bubbles, 2)
		assert.Equal(t, 6, len(result.Plan.Items))
	})

	t.Run("rejects malformed bodies", func(t *testing.T) {
		rec, env := do(t, srv.Handler(), http.MethodPost, "/api/v1/humanizer/preview", `{"text":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "error", env.Status)
		assert.Contains(t, env.Error, "Invalid request body")
	})
}

func TestHandleConfig(t *testing.T) {
	t.Run("get returns the effective config", func(t *testing.T) {
		settings := newMemorySettings()
		settings.values[humanizer.DefaultSettingsKey] = `{"rules":{"maxBubbles":1}}`
		srv, _ := setupServer(t, testAdminConfig(), settings)

		rec, env := do(t, srv.Handler(), http.MethodGet, "/api/v1/humanizer/config", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var result ConfigResult
		require.NoError(t, json.Unmarshal(env.Data, &result))
		assert.Equal(t, humanizer.DefaultSettingsKey, result.Key)
		assert.Equal(t, 1, result.Config.Rules.MaxBubbles)
	})

	t.Run("defaults ignore the stored document", func(t *testing.T) {
		settings := newMemorySettings()
		settings.values[humanizer.DefaultSettingsKey] = `{"rules":{"maxBubbles":1}}`
		srv, _ := setupServer(t, testAdminConfig(), settings)

		_, env := do(t, srv.Handler(), http.MethodGet, "/api/v1/humanizer/config/defaults", "")
		var result ConfigResult
		require.NoError(t, json.Unmarshal(env.Data, &result))
		assert.Equal(t, humanizer.DefaultConfig().Rules, result.Config.Rules)
	})

	t.Run("put stores a canonical document and invalidates the cache", func(t *testing.T) {
		settings := newMemorySettings()
		srv, configs := setupServer(t, testAdminConfig(), settings)
		assert.Equal(t, 2, configs.Get(context.Background()).Rules.MaxBubbles)

		rec, env := do(t, srv.Handler(), http.MethodPut, "/api/v1/humanizer/config",
			`{"rules":{"maxBubbles":3},"modes":{"templates":{"hot-cta":["Bora?"]}}}`)
		require.Equal(t, http.StatusOK, rec.Code, env.Error)

		stored, err := humanizer.DecodeConfig(settings.values[humanizer.DefaultSettingsKey])
		require.NoError(t, err)
		assert.Equal(t, 3, stored.Rules.MaxBubbles)
		assert.Equal(t, []string{"Bora?"}, stored.Modes.Templates[humanizer.ModeHotCTA])

		assert.Equal(t, 3, configs.Get(context.Background()).Rules.MaxBubbles, "the cache was invalidated")
	})

	t.Run("put rejects invalid documents", func(t *testing.T) {
		settings := newMemorySettings()
		srv, _ := setupServer(t, testAdminConfig(), settings)

		rec, env := do(t, srv.Handler(), http.MethodPut, "/api/v1/humanizer/config", `{"rules":{"maxBubbles":0}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, env.Error, "rules.maxBubbles")

		rec, env = do(t, srv.Handler(), http.MethodPut, "/api/v1/humanizer/config", `[1,2,3]`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, env.Error, "malformed config document")

		rec, _ = do(t, srv.Handler(), http.MethodPut, "/api/v1/humanizer/config", "   ")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		assert.Empty(t, settings.values, "nothing is stored on rejection")
	})

	t.Run("put without a backend is unavailable", func(t *testing.T) {
		srv, _ := setupServer(t, testAdminConfig(), nil)
		rec, env := do(t, srv.Handler(), http.MethodPut, "/api/v1/humanizer/config", `{}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, env.Error, "read-only")
	})

	t.Run("storage failures are internal errors", func(t *testing.T) {
		settings := newMemorySettings()
		settings.writeErr = errors.New("disk full")
		srv, _ := setupServer(t, testAdminConfig(), settings)

		rec, env := do(t, srv.Handler(), http.MethodPut, "/api/v1/humanizer/config", `{}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, env.Error, "disk full", "driver errors are not leaked")
	})

	t.Run("delete restores the defaults", func(t *testing.T) {
		settings := newMemorySettings()
		settings.values[humanizer.DefaultSettingsKey] = `{"rules":{"maxBubbles":1}}`
		srv, configs := setupServer(t, testAdminConfig(), settings)
		assert.Equal(t, 1, configs.Get(context.Background()).Rules.MaxBubbles)

		rec, _ := do(t, srv.Handler(), http.MethodDelete, "/api/v1/humanizer/config", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, settings.values, humanizer.DefaultSettingsKey)
		assert.Equal(t, 2, configs.Get(context.Background()).Rules.MaxBubbles)
	})

	t.Run("invalidate forces a refetch", func(t *testing.T) {
		settings := newMemorySettings()
		srv, configs := setupServer(t, testAdminConfig(), settings)
		_ = configs.Get(context.Background())
		require.Equal(t, 1, settings.readCount())

		rec, _ := do(t, srv.Handler(), http.MethodPost, "/api/v1/humanizer/config/invalidate", "")
		require.Equal(t, http.StatusOK, rec.Code)

		_ = configs.Get(context.Background())
		assert.Equal(t, 2, settings.readCount())
	})
}

func TestRateLimit(t *testing.T) {
	cfg := testAdminConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 2
	srv, _ := setupServer(t, cfg, nil)

	for i := 0; i < 2; i++ {
		rec, _ := do(t, srv.Handler(), http.MethodGet, "/api/v1/humanizer/config/defaults", "")
		require.Equal(t, http.StatusOK, rec.Code, "request %d is within the burst", i)
	}

	rec, env := do(t, srv.Handler(), http.MethodGet, "/api/v1/humanizer/config/defaults", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "error", env.Status)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec, _ = do(t, srv.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code, "health checks are never throttled")
}

func TestServer_ServeAndShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testAdminConfig()
	cfg.MaxConnections = 2
	srv, _ := setupServer(t, cfg, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	client := &http.Client{Timeout: 2 * time.Second}
	require.Eventually(t, func() bool {
		resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	client.CloseIdleConnections()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_RunReportsListenErrors(t *testing.T) {
	cfg := testAdminConfig()
	cfg.ListenAddr = "256.0.0.1:bad"
	srv, _ := setupServer(t, cfg, nil)

	err := srv.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}
