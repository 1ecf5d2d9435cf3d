// Package confstore is the runtime configuration collaborator: string
// values keyed by (category, key), with an explicit invalidate-on-write
// caching contract. Rarity weights and the exclusion threshold live here so
// administrators can change them without a restart.
package confstore

import "context"

// Store reads and writes configuration values. Implementations may cache
// reads, but a Set must invalidate the cached entry synchronously: the next
// Get after a Set always observes the written value.
type Store interface {
	Get(ctx context.Context, category, key string) (string, bool, error)
	Set(ctx context.Context, category, key, value string) error
}

// SeedDefaults writes each default value only if the key is absent, so boot
// never clobbers admin overrides.
func SeedDefaults(ctx context.Context, s Store, defaults map[[2]string]string) error {
	for ck, v := range defaults {
		_, ok, err := s.Get(ctx, ck[0], ck[1])
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if err := s.Set(ctx, ck[0], ck[1], v); err != nil {
			return err
		}
	}
	return nil
}
