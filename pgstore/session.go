package pgstore

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/trippop/gacha-reward-server/draw"
)

// Sessions backs draw.SessionStore with the draw_sessions table. The
// locale is flattened into country/city/district columns.
type Sessions struct {
	db Querier
}

func NewSessions(db Querier) *Sessions {
	return &Sessions{db: db}
}

func (s *Sessions) Insert(ctx context.Context, sess *draw.Session) error {
	query, args, err := sb.Insert("draw_sessions").
		Columns("id", "user_id", "country", "city", "district", "requested",
			"place_ids", "published", "created_at").
		Values(sess.ID, sess.UserID, sess.Locale.Country, sess.Locale.City,
			sess.Locale.District, sess.Requested, sess.PlaceIDs,
			sess.Published, sess.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Sessions) SetPublished(ctx context.Context, id uuid.UUID) error {
	query, args, err := sb.Update("draw_sessions").
		Set("published", true).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build flag session: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("flag session %s: %w", id, err)
	}
	return nil
}
