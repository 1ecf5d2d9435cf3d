package pgstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
)

// Conf backs confstore.Store with the config_values table plus a
// read-through cache. Set writes through and refreshes the cached entry
// before returning, which is what keeps the Get-after-Set contract.
type Conf struct {
	db    Querier
	mu    sync.RWMutex
	cache map[string]string
}

func NewConf(db Querier) *Conf {
	return &Conf{db: db, cache: make(map[string]string)}
}

func cacheKey(category, key string) string { return category + "/" + key }

func (s *Conf) Get(ctx context.Context, category, key string) (string, bool, error) {
	ck := cacheKey(category, key)
	s.mu.RLock()
	if v, ok := s.cache[ck]; ok {
		s.mu.RUnlock()
		return v, true, nil
	}
	s.mu.RUnlock()

	query, args, err := sb.Select("value").
		From("config_values").
		Where(squirrel.Eq{"category": category, "key": key}).
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build get config: %w", err)
	}
	var value string
	if err := pgxscan.Get(ctx, s.db, &value, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get config %s/%s: %w", category, key, err)
	}
	s.mu.Lock()
	s.cache[ck] = value
	s.mu.Unlock()
	return value, true, nil
}

func (s *Conf) Set(ctx context.Context, category, key, value string) error {
	query, args, err := sb.Insert("config_values").
		Columns("category", "key", "value").
		Values(category, key, value).
		Suffix("ON CONFLICT (category, key) DO UPDATE SET value = EXCLUDED.value").
		ToSql()
	if err != nil {
		return fmt.Errorf("build set config: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("set config %s/%s: %w", category, key, err)
	}
	s.mu.Lock()
	s.cache[cacheKey(category, key)] = value
	s.mu.Unlock()
	return nil
}
