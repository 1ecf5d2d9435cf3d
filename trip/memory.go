package trip

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Memory persists published trips to trips.json under dataDir.
type Memory struct {
	mu      sync.Mutex
	trips   []*Trip
	nextID  int64
	dataDir string
}

func NewMemory(dataDir string) *Memory {
	if dataDir == "" {
		dataDir = "data"
	}
	s := &Memory{nextID: 1, dataDir: dataDir}
	s.load()
	return s
}

func (s *Memory) path() string {
	return filepath.Join(s.dataDir, "trips.json")
}

func (s *Memory) load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path())
	if err != nil {
		return
	}
	var list []*Trip
	if err := json.Unmarshal(data, &list); err != nil {
		return
	}
	s.trips = list
	for _, t := range list {
		if t.ID >= s.nextID {
			s.nextID = t.ID + 1
		}
	}
}

// saveLocked writes trips to disk. Caller must hold s.mu.
func (s *Memory) saveLocked() error {
	data, err := json.MarshalIndent(s.trips, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(s.path(), data, 0644)
}

func (s *Memory) RecentSignatures(ctx context.Context, city string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for i := len(s.trips) - 1; i >= 0 && len(out) < limit; i-- {
		if s.trips[i].City == city {
			out = append(out, s.trips[i].Signature)
		}
	}
	return out, nil
}

func (s *Memory) Insert(ctx context.Context, t *Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.nextID
	s.nextID++
	cp := *t
	s.trips = append(s.trips, &cp)
	return s.saveLocked()
}

func (s *Memory) CountUpTo(ctx context.Context, city string, id int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.trips {
		if t.City == city && t.ID <= id {
			n++
		}
	}
	return n, nil
}
