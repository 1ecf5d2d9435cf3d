package inventory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory persists items to inventory.json under dataDir. Insert checks the
// (user, slot) pair under the store mutex, which is the memory-mode
// equivalent of the Postgres uniqueness constraint.
type Memory struct {
	mu      sync.Mutex
	items   map[uuid.UUID]*Item
	dataDir string
}

func NewMemory(dataDir string) *Memory {
	if dataDir == "" {
		dataDir = "data"
	}
	s := &Memory{
		items:   make(map[uuid.UUID]*Item),
		dataDir: dataDir,
	}
	s.load()
	return s
}

func (s *Memory) path() string {
	return filepath.Join(s.dataDir, "inventory.json")
}

func (s *Memory) load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path())
	if err != nil {
		return
	}
	var list []*Item
	if err := json.Unmarshal(data, &list); err != nil {
		return
	}
	for _, it := range list {
		if it != nil && it.ID != uuid.Nil {
			s.items[it.ID] = it
		}
	}
}

// saveLocked writes the store to disk. Caller must hold s.mu.
func (s *Memory) saveLocked() error {
	list := make([]*Item, 0, len(s.items))
	for _, it := range s.items {
		list = append(list, it)
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(s.path(), data, 0644)
}

func (s *Memory) Insert(ctx context.Context, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.UserID == item.UserID && it.Slot == item.Slot && it.State != StateDeleted {
			return ErrSlotTaken
		}
	}
	cp := *item
	s.items[item.ID] = &cp
	return s.saveLocked()
}

func (s *Memory) Get(ctx context.Context, itemID uuid.UUID) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[itemID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (s *Memory) Update(ctx context.Context, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; !ok {
		return ErrNotFound
	}
	cp := *item
	s.items[item.ID] = &cp
	return s.saveLocked()
}

func (s *Memory) ListActive(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Item
	for _, it := range s.items {
		if it.UserID == userID && it.State != StateDeleted {
			out = append(out, *it)
		}
	}
	sortBySlot(out)
	return out, nil
}

func (s *Memory) ListExpiring(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Item
	for _, it := range s.items {
		if it.UserID != userID || it.State != StateActive || it.ValidUntil == nil {
			continue
		}
		if it.ValidUntil.Before(from) || it.ValidUntil.After(to) {
			continue
		}
		out = append(out, *it)
	}
	sortBySlot(out)
	return out, nil
}

func (s *Memory) ExpiringUsers(ctx context.Context, from, to time.Time) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, it := range s.items {
		if it.State != StateActive || it.ValidUntil == nil || seen[it.UserID] {
			continue
		}
		if it.ValidUntil.Before(from) || it.ValidUntil.After(to) {
			continue
		}
		seen[it.UserID] = true
		out = append(out, it.UserID)
	}
	return out, nil
}

func sortBySlot(items []Item) {
	sort.Slice(items, func(i, j int) bool { return items[i].Slot < items[j].Slot })
}
