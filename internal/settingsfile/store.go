// File: internal/settingsfile/store.go
package settingsfile

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/wa-humanizer/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// documentExts are tried in order; the first existing file wins.
var documentExts = []string{".json", ".yaml", ".yml"}

const (
	historyExt          = ".history.jsonl"
	defaultHistoryLimit = 20
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ErrInvalidKey is returned for keys that cannot be used as file names.
var ErrInvalidKey = errors.New("settingsfile: invalid key")

// Store keeps one document per key in a directory: <dir>/<key>.json, or a
// hand-written <key>.yaml. Changes are appended to <key>.history.jsonl.
type Store struct {
	dir string
	log *zap.Logger
	now func() time.Time
	// mu serializes writers within the process.
	mu sync.Mutex
}

type historyEntry struct {
	Value     *string   `json:"value"`
	ChangedAt time.Time `json:"changed_at"`
}

// New creates a Store over dir. The directory is created by EnsureSchema.
func New(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		dir: dir,
		log: logger.Named("settings_file"),
		now: time.Now,
	}
}

// Dir returns the directory the store reads.
func (s *Store) Dir() string { return s.dir }

// EnsureSchema creates the settings directory.
func (s *Store) EnsureSchema(context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	return nil
}

// GetSettingValue returns the document stored under key as JSON. YAML
// documents are converted. ok is false when no file exists.
func (s *Store) GetSettingValue(ctx context.Context, key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	for _, ext := range documentExts {
		path := filepath.Join(s.dir, key+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
		}
		doc, err := ToJSON(data, path)
		if err != nil {
			// A broken document is still a document; the caller decides what to do with it.
			s.log.Warn("Settings file is not valid YAML", zap.String("path", path), zap.Error(err))
			return string(data), true, nil
		}
		return doc, true, nil
	}
	return "", false, nil
}

// SetSettingValue writes value to <key>.json atomically and drops any YAML
// variant so the new document is the one read back.
func (s *Store) SetSettingValue(ctx context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(s.dir, key+".json"), []byte(value)); err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	if err := s.removeVariants(key, ".yaml", ".yml"); err != nil {
		return err
	}
	s.appendHistory(key, &value)
	s.log.Info("Setting updated.", zap.String("key", key))
	return nil
}

// DeleteSetting removes every document file for key. Deleting a missing key
// is not an error.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.removeVariants(key, documentExts...); err != nil {
		return err
	}
	s.appendHistory(key, nil)
	s.log.Info("Setting deleted.", zap.String("key", key))
	return nil
}

// SettingHistory returns up to limit changes for key, newest first.
func (s *Store) SettingHistory(ctx context.Context, key string, limit int) ([]store.SettingChange, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.dir, key+historyExt))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open setting history: %w", err)
	}
	defer f.Close()

	var all []store.SettingChange
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry historyEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			s.log.Warn("Skipping corrupt history line", zap.String("key", key), zap.Error(err))
			continue
		}
		all = append(all, store.SettingChange{Key: key, Value: entry.Value, ChangedAt: entry.ChangedAt})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read setting history: %w", err)
	}

	out := make([]store.SettingChange, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// appendHistory records a change. History is best effort; a failure is
// logged and the write it describes still stands.
func (s *Store) appendHistory(key string, value *string) {
	line, err := json.Marshal(historyEntry{Value: value, ChangedAt: s.now().UTC()})
	if err != nil {
		s.log.Error("Failed to encode history entry", zap.Error(err))
		return
	}
	f, err := os.OpenFile(filepath.Join(s.dir, key+historyExt), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.log.Error("Failed to open history file", zap.String("key", key), zap.Error(err))
		return
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		s.log.Error("Failed to append history entry", zap.String("key", key), zap.Error(err))
	}
}

func (s *Store) removeVariants(key string, exts ...string) error {
	for _, ext := range exts {
		err := os.Remove(filepath.Join(s.dir, key+ext))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove setting %s%s: %w", key, ext, err)
		}
	}
	return nil
}

// ToJSON returns data as a JSON document. Files named *.yaml or *.yml are
// decoded as YAML first; anything else is returned unchanged.
func ToJSON(data []byte, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return string(data), nil
	}
	var v interface{}
	if err := yaml.Unmarshal(data, &v); err != nil {
		return "", fmt.Errorf("invalid YAML in %s: %w", filepath.Base(path), err)
	}
	if v == nil {
		return "", nil
	}
	doc, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("cannot represent %s as JSON: %w", filepath.Base(path), err)
	}
	return string(doc), nil
}

func validateKey(key string) error {
	if !keyPattern.MatchString(key) || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// writeFileAtomic replaces path through a temp file in the same directory.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
