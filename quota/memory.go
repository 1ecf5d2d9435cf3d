package quota

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory persists counters to quotas.json under dataDir. All mutation runs
// under one mutex, so increments are atomic.
type Memory struct {
	mu      sync.Mutex
	counts  map[string]int
	dataDir string
	now     func() time.Time
}

func NewMemory(dataDir string) *Memory {
	if dataDir == "" {
		dataDir = "data"
	}
	s := &Memory{
		counts:  make(map[string]int),
		dataDir: dataDir,
		now:     time.Now,
	}
	s.load()
	return s
}

// SetNow overrides the clock. Test helper.
func (s *Memory) SetNow(now func() time.Time) { s.now = now }

func counterKey(userID uuid.UUID, day string) string {
	return userID.String() + "|" + day
}

func (s *Memory) path() string {
	return filepath.Join(s.dataDir, "quotas.json")
}

func (s *Memory) load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path())
	if err != nil {
		return
	}
	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return
	}
	s.counts = m
}

// saveLocked writes counters to disk. Caller must hold s.mu.
func (s *Memory) saveLocked() error {
	data, err := json.MarshalIndent(s.counts, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(s.path(), data, 0644)
}

func (s *Memory) DailyCount(ctx context.Context, userID uuid.UUID) (int, error) {
	key := counterKey(userID, DayKey(s.now()))
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key], nil
}

func (s *Memory) Increment(ctx context.Context, userID uuid.UUID, n int) (int, error) {
	key := counterKey(userID, DayKey(s.now()))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key] += n
	total := s.counts[key]
	if err := s.saveLocked(); err != nil {
		return total, err
	}
	return total, nil
}
