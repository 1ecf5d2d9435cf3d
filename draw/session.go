package draw

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trippop/gacha-reward-server/catalog"
)

// Session is one completed draw: which places a user received and whether
// the composition got published as a trip. Immutable after creation except
// the publish flag.
type Session struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	UserID    uuid.UUID      `json:"userId" db:"user_id"`
	Locale    catalog.Locale `json:"locale"`
	Requested int            `json:"requested" db:"requested"`
	PlaceIDs  []int64        `json:"placeIds" db:"place_ids"`
	Published bool           `json:"published" db:"published"`
	CreatedAt time.Time      `json:"createdAt" db:"created_at"`
}

// SessionStore persists draw sessions.
type SessionStore interface {
	Insert(ctx context.Context, s *Session) error
	SetPublished(ctx context.Context, id uuid.UUID) error
}

// MemorySessions persists sessions to draw_sessions.json under dataDir.
type MemorySessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	dataDir  string
}

func NewMemorySessions(dataDir string) *MemorySessions {
	if dataDir == "" {
		dataDir = "data"
	}
	s := &MemorySessions{
		sessions: make(map[uuid.UUID]*Session),
		dataDir:  dataDir,
	}
	s.load()
	return s
}

func (s *MemorySessions) path() string {
	return filepath.Join(s.dataDir, "draw_sessions.json")
}

func (s *MemorySessions) load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path())
	if err != nil {
		return
	}
	var list []*Session
	if err := json.Unmarshal(data, &list); err != nil {
		return
	}
	for _, sess := range list {
		if sess != nil && sess.ID != uuid.Nil {
			s.sessions[sess.ID] = sess
		}
	}
}

// saveLocked writes sessions to disk. Caller must hold s.mu.
func (s *MemorySessions) saveLocked() error {
	list := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
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

func (s *MemorySessions) Insert(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ID] = &cp
	return s.saveLocked()
}

func (s *MemorySessions) SetPublished(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.Published = true
		return s.saveLocked()
	}
	return nil
}
