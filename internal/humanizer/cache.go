// File: internal/humanizer/cache.go
package humanizer

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultSettingsKey is the settings row holding the engine config document.
	DefaultSettingsKey = "agent_humanizer_config"
	// DefaultCacheTTL bounds how long a loaded config is served before refetching.
	DefaultCacheTTL = 5 * time.Minute
	// DefaultFetchTimeout bounds a single backend round trip.
	DefaultFetchTimeout = 5 * time.Second
)

// SettingsSource reads raw setting documents. ok is false when the key is unset.
type SettingsSource interface {
	GetSettingValue(ctx context.Context, key string) (value string, ok bool, err error)
}

// ConfigStore caches the engine config with an absolute expiry and collapses
// concurrent misses into a single backend fetch.
type ConfigStore struct {
	source       SettingsSource
	key          string
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	log          *zap.Logger

	mu         sync.RWMutex
	value      *Config
	expiresAt  time.Time
	generation uint64

	group singleflight.Group
}

// StoreOption customizes a ConfigStore.
type StoreOption func(*ConfigStore)

// WithTTL sets the cache lifetime. Non-positive values are ignored.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *ConfigStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSettingsKey overrides the settings key the document is read from.
func WithSettingsKey(key string) StoreOption {
	return func(s *ConfigStore) {
		if key != "" {
			s.key = key
		}
	}
}

// WithFetchTimeout bounds each backend fetch. Non-positive values are ignored.
func WithFetchTimeout(d time.Duration) StoreOption {
	return func(s *ConfigStore) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *ConfigStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used to report absorbed failures.
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *ConfigStore) {
		if logger != nil {
			s.log = logger
		}
	}
}

// NewConfigStore creates a store reading from source. A nil source always
// serves DefaultConfig.
func NewConfigStore(source SettingsSource, opts ...StoreOption) *ConfigStore {
	s := &ConfigStore{
		source:       source,
		key:          DefaultSettingsKey,
		ttl:          DefaultCacheTTL,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("config_store")
	return s
}

// Key returns the settings key the store reads.
func (s *ConfigStore) Key() string { return s.key }

// Get returns the current configuration. It never fails: backend and
// document errors are logged and DefaultConfig is served instead. Callers
// receive their own copy.
func (s *ConfigStore) Get(ctx context.Context) Config {
	if cfg, ok := s.cached(); ok {
		return cfg
	}

	s.mu.RLock()
	gen := s.generation
	s.mu.RUnlock()

	// Flights are per generation: a Get after Invalidate never joins a fetch
	// that started before it.
	flight := s.key + "#" + strconv.FormatUint(gen, 10)
	v, _, _ := s.group.Do(flight, func() (interface{}, error) {
		// Another flight may have filled the cache since our check.
		if cfg, ok := s.cached(); ok {
			return cfg, nil
		}
		cfg, cacheable := s.fetch(ctx)
		if cacheable {
			s.mu.Lock()
			// An Invalidate during the fetch makes this result stale.
			if s.generation == gen {
				stored := cfg.Clone()
				s.value = &stored
				s.expiresAt = s.now().Add(s.ttl)
			}
			s.mu.Unlock()
		}
		return cfg, nil
	})
	return v.(Config).Clone()
}

// Invalidate drops the cached value so the next Get refetches.
func (s *ConfigStore) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = nil
	s.expiresAt = time.Time{}
	s.generation++
	s.log.Debug("Humanizer config cache invalidated.", zap.Uint64("generation", s.generation))
}

// ExpiresAt reports when the cached value expires; zero when nothing is cached.
func (s *ConfigStore) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

func (s *ConfigStore) cached() (Config, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.value == nil || !s.now().Before(s.expiresAt) {
		return Config{}, false
	}
	return s.value.Clone(), true
}

// fetch loads and sanitizes the document. cacheable is false for transport
// failures so the next call retries instead of pinning defaults for a TTL.
func (s *ConfigStore) fetch(ctx context.Context) (cfg Config, cacheable bool) {
	if s.source == nil {
		return DefaultConfig(), true
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Settings source panicked; serving default humanizer config.",
				zap.Error(fmt.Errorf("%w: panic: %v", ErrConfigFetch, r)))
			cfg, cacheable = DefaultConfig(), false
		}
	}()

	// The fetch is shared by every waiting caller, so one caller giving up
	// must not cancel it for the rest.
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
	defer cancel()

	raw, ok, err := s.source.GetSettingValue(fetchCtx, s.key)
	if err != nil {
		s.log.Warn("Could not load humanizer config; serving defaults.",
			zap.String("key", s.key),
			zap.Error(fmt.Errorf("%w: %w", ErrConfigFetch, err)))
		return DefaultConfig(), false
	}
	if !ok {
		return DefaultConfig(), true
	}

	decoded, err := DecodeConfig(raw)
	if err != nil {
		s.log.Warn("Ignoring malformed humanizer config; serving defaults.",
			zap.String("key", s.key), zap.Error(err))
		return DefaultConfig(), true
	}

	sanitized, fixed := decoded.Sanitize()
	if len(fixed) > 0 {
		s.log.Warn("Replaced invalid humanizer config fields with defaults.",
			zap.String("key", s.key), zap.Strings("fields", fixed))
	}
	return sanitized, true
}
