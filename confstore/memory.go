package confstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Memory persists configuration to conf.json under dataDir.
type Memory struct {
	mu      sync.RWMutex
	values  map[string]string
	dataDir string
}

func NewMemory(dataDir string) *Memory {
	if dataDir == "" {
		dataDir = "data"
	}
	s := &Memory{
		values:  make(map[string]string),
		dataDir: dataDir,
	}
	s.load()
	return s
}

func confKey(category, key string) string { return category + "/" + key }

func (s *Memory) path() string {
	return filepath.Join(s.dataDir, "conf.json")
}

func (s *Memory) load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path())
	if err != nil {
		return
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return
	}
	s.values = m
}

// saveLocked writes the store to disk. Caller must hold s.mu.
func (s *Memory) saveLocked() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(s.path(), data, 0644)
}

func (s *Memory) Get(ctx context.Context, category, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[confKey(category, key)]
	return v, ok, nil
}

func (s *Memory) Set(ctx context.Context, category, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[confKey(category, key)] = value
	return s.saveLocked()
}
