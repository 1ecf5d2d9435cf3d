package exclusion

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trippop/gacha-reward-server/catalog"
	"github.com/trippop/gacha-reward-server/confstore"
)

// Memory persists the ledger to exclusions.json under dataDir.
type Memory struct {
	mu      sync.Mutex
	records map[string]*Record
	conf    confstore.Store
	dataDir string
	now     func() time.Time
}

func NewMemory(dataDir string, conf confstore.Store) *Memory {
	if dataDir == "" {
		dataDir = "data"
	}
	s := &Memory{
		records: make(map[string]*Record),
		conf:    conf,
		dataDir: dataDir,
		now:     time.Now,
	}
	s.load()
	return s
}

func localeKey(loc catalog.Locale) string {
	return loc.Country + "|" + loc.City + "|" + loc.District
}

func userKey(userID uuid.UUID, placeName string, loc catalog.Locale) string {
	return "u|" + userID.String() + "|" + placeName + "|" + localeKey(loc)
}

func globalKey(placeName string, loc catalog.Locale) string {
	return "g|" + placeName + "|" + localeKey(loc)
}

func (s *Memory) path() string {
	return filepath.Join(s.dataDir, "exclusions.json")
}

func (s *Memory) load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path())
	if err != nil {
		return
	}
	var list []*Record
	if err := json.Unmarshal(data, &list); err != nil {
		return
	}
	for _, r := range list {
		if r == nil || r.PlaceName == "" {
			continue
		}
		if r.Scope == ScopeGlobal {
			s.records[globalKey(r.PlaceName, r.Locale)] = r
		} else if r.UserID != nil {
			s.records[userKey(*r.UserID, r.PlaceName, r.Locale)] = r
		}
	}
}

// saveLocked writes the ledger to disk. Caller must hold s.mu.
func (s *Memory) saveLocked() error {
	list := make([]*Record, 0, len(s.records))
	for _, r := range s.records {
		list = append(list, r)
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

func (s *Memory) IsExcluded(ctx context.Context, userID uuid.UUID, placeName string, loc catalog.Locale) (bool, error) {
	threshold := Threshold(ctx, s.conf)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[globalKey(placeName, loc)]; ok {
		return true, nil
	}
	if r, ok := s.records[userKey(userID, placeName, loc)]; ok && r.Score >= threshold {
		return true, nil
	}
	return false, nil
}

func (s *Memory) Penalize(ctx context.Context, userID uuid.UUID, placeName string, loc catalog.Locale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userKey(userID, placeName, loc)
	r, ok := s.records[key]
	if !ok {
		uid := userID
		r = &Record{
			UserID:    &uid,
			PlaceName: placeName,
			Locale:    loc,
			Scope:     ScopeUser,
		}
		s.records[key] = r
	}
	r.Score++
	r.LastAt = s.now()
	return s.saveLocked()
}

func (s *Memory) GlobalExclude(ctx context.Context, placeName string, loc catalog.Locale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := globalKey(placeName, loc)
	if _, ok := s.records[key]; ok {
		return nil
	}
	s.records[key] = &Record{
		PlaceName: placeName,
		Locale:    loc,
		Scope:     ScopeGlobal,
		LastAt:    s.now(),
	}
	return s.saveLocked()
}
