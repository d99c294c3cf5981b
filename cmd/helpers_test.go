// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/wa-humanizer/internal/config"
	"github.com/xkilldash9x/wa-humanizer/internal/observability"
	"github.com/xkilldash9x/wa-humanizer/internal/store"
)

// memoryBackend is an in-memory settingsBackend recording a history like the
// PostgreSQL store does.
type memoryBackend struct {
	mu      sync.Mutex
	values  map[string]string
	history []store.SettingChange
	now     time.Time
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{
		values: map[string]string{},
		now:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (m *memoryBackend) EnsureSchema(context.Context) error { return nil }

func (m *memoryBackend) GetSettingValue(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryBackend) SetSettingValue(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.record(key, &value)
	return nil
}

func (m *memoryBackend) DeleteSetting(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	m.record(key, nil)
	return nil
}

func (m *memoryBackend) SettingHistory(_ context.Context, key string, limit int) ([]store.SettingChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.SettingChange
	for i := len(m.history) - 1; i >= 0 && len(out) < limit; i-- {
		if m.history[i].Key == key {
			out = append(out, m.history[i])
		}
	}
	return out, nil
}

func (m *memoryBackend) record(key string, value *string) {
	m.now = m.now.Add(time.Minute)
	m.history = append(m.history, store.SettingChange{Key: key, Value: value, ChangedAt: m.now})
}

// fakeProvider hands out a fixed backend; a nil backend behaves like an
// unconfigured database.
type fakeProvider struct {
	backend settingsBackend
	err     error
	created int
}

func (p *fakeProvider) Create(context.Context, config.Interface) (settingsBackend, func(), error) {
	p.created++
	if p.err != nil {
		return nil, nil, p.err
	}
	if p.backend == nil {
		return nil, func() {}, nil
	}
	return p.backend, func() {}, nil
}

// writeTestConfig writes a config file that keeps log files inside the test's
// temp dir, plus any extra YAML.
func writeTestConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf("logger:\n  level: error\n  log_file: %s\n%s",
		filepath.Join(dir, "test.log"), extra)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// executeCommand runs a fresh command tree with the full PersistentPreRunE.
func executeCommand(t *testing.T, provider settingsProvider, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	root, _ := newRootCmd(provider)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", writeTestConfig(t, "")}, args...))

	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// executeCommandNoPreRun is for testing argument and flag validation without
// triggering the config loading in PersistentPreRunE.
func executeCommandNoPreRun(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, _ := newRootCmd(&fakeProvider{})
	root.PersistentPreRunE = nil

	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}
