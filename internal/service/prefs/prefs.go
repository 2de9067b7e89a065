package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	drepo "SignalDeck/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

// Preference keys. Values are plain strings with no schema versioning.
const (
	KeySoundEnabled     = "sound_enabled"
	KeySidebarCollapsed = "sidebar_collapsed"
)

// FileStore persists preferences in a small JSON file, read once at startup
// and rewritten on every change.
type FileStore struct {
	mu   sync.Mutex
	path string
	m    map[string]string
}

func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, m: make(map[string]string)}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read prefs: %w", err)
	}
	if err := json.Unmarshal(b, &s.m); err != nil {
		// A corrupt prefs file resets to defaults rather than blocking startup.
		s.m = make(map[string]string)
	}
	return s, nil
}

func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	b, err := json.MarshalIndent(s.m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

// RedisStore keeps preferences in a Redis hash so they follow the user
// across desks. The hash is loaded once at startup and written through.
type RedisStore struct {
	mu  sync.Mutex
	rdb *redis.Client
	key string
	m   map[string]string
}

func NewRedisStore(rdb *redis.Client) (*RedisStore, error) {
	s := &RedisStore{rdb: rdb, key: "signaldeck:prefs", m: make(map[string]string)}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	m, err := rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("load prefs: %w", err)
	}
	for k, v := range m {
		s.m[k] = v
	}
	return s, nil
}

func (s *RedisStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok
}

func (s *RedisStore) Set(key, value string) error {
	s.mu.Lock()
	s.m[key] = value
	s.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.rdb.HSet(ctx, s.key, key, value).Err(); err != nil {
		return fmt.Errorf("save pref %s: %w", key, err)
	}
	return nil
}

// Service exposes typed accessors over a PrefStore.
type Service struct {
	store drepo.PrefStore
}

func NewService(store drepo.PrefStore) *Service {
	return &Service{store: store}
}

// SoundEnabled defaults to true when unset.
func (s *Service) SoundEnabled() bool {
	v, ok := s.store.Get(KeySoundEnabled)
	if !ok {
		return true
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func (s *Service) SetSoundEnabled(enabled bool) error {
	return s.store.Set(KeySoundEnabled, strconv.FormatBool(enabled))
}

// SidebarCollapsed defaults to false when unset.
func (s *Service) SidebarCollapsed() bool {
	v, ok := s.store.Get(KeySidebarCollapsed)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func (s *Service) SetSidebarCollapsed(collapsed bool) error {
	return s.store.Set(KeySidebarCollapsed, strconv.FormatBool(collapsed))
}

// Snapshot returns the current preference values for the view API.
func (s *Service) Snapshot() map[string]bool {
	return map[string]bool{
		KeySoundEnabled:     s.SoundEnabled(),
		KeySidebarCollapsed: s.SidebarCollapsed(),
	}
}
