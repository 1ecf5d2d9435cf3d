package redemption

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryCodes persists merchant codes to merchant_codes.json under dataDir.
type MemoryCodes struct {
	mu      sync.Mutex
	codes   map[int64]*MerchantCode
	dataDir string
}

func NewMemoryCodes(dataDir string) *MemoryCodes {
	if dataDir == "" {
		dataDir = "data"
	}
	s := &MemoryCodes{
		codes:   make(map[int64]*MerchantCode),
		dataDir: dataDir,
	}
	s.load()
	return s
}

func (s *MemoryCodes) path() string {
	return filepath.Join(s.dataDir, "merchant_codes.json")
}

func (s *MemoryCodes) load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path())
	if err != nil {
		return
	}
	var list []*MerchantCode
	if err := json.Unmarshal(data, &list); err != nil {
		return
	}
	for _, c := range list {
		if c != nil && c.MerchantID != 0 {
			s.codes[c.MerchantID] = c
		}
	}
}

// saveLocked writes codes to disk. Caller must hold s.mu.
func (s *MemoryCodes) saveLocked() error {
	list := make([]*MerchantCode, 0, len(s.codes))
	for _, c := range s.codes {
		list = append(list, c)
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

func (s *MemoryCodes) SetCode(ctx context.Context, merchantID int64, code string, issuedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[merchantID] = &MerchantCode{
		MerchantID: merchantID,
		Code:       code,
		IssuedAt:   issuedAt,
	}
	return s.saveLocked()
}

func (s *MemoryCodes) GetCode(ctx context.Context, merchantID int64) (*MerchantCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[merchantID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

// MemoryStore persists redemption records to redemptions.json under dataDir.
type MemoryStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Redemption
	dataDir string
}

func NewMemoryStore(dataDir string) *MemoryStore {
	if dataDir == "" {
		dataDir = "data"
	}
	s := &MemoryStore{
		records: make(map[uuid.UUID]*Redemption),
		dataDir: dataDir,
	}
	s.load()
	return s
}

func (s *MemoryStore) path() string {
	return filepath.Join(s.dataDir, "redemptions.json")
}

func (s *MemoryStore) load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path())
	if err != nil {
		return
	}
	var list []*Redemption
	if err := json.Unmarshal(data, &list); err != nil {
		return
	}
	for _, r := range list {
		if r != nil && r.ID != uuid.Nil {
			s.records[r.ID] = r
		}
	}
}

// saveLocked writes records to disk. Caller must hold s.mu.
func (s *MemoryStore) saveLocked() error {
	list := make([]*Redemption, 0, len(s.records))
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

func (s *MemoryStore) Insert(ctx context.Context, r *Redemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.records[r.ID] = &cp
	return s.saveLocked()
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Redemption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) Update(ctx context.Context, r *Redemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.records[r.ID] = &cp
	return s.saveLocked()
}

func (s *MemoryStore) ListOverdue(ctx context.Context, now time.Time) ([]Redemption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Redemption
	for _, r := range s.records {
		if r.Status == StatusVerified && r.Deadline.Before(now) {
			out = append(out, *r)
		}
	}
	return out, nil
}
