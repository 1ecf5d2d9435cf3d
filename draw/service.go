package draw

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"

	"github.com/trippop/gacha-reward-server/catalog"
	"github.com/trippop/gacha-reward-server/inventory"
	"github.com/trippop/gacha-reward-server/notify"
	"github.com/trippop/gacha-reward-server/quota"
	"github.com/trippop/gacha-reward-server/rarity"
	"github.com/trippop/gacha-reward-server/trip"
)

// DefaultDailyLimit is how many draws a user gets per day unless configured
// otherwise.
const DefaultDailyLimit = 3

// ErrQuotaExceeded rejects a draw before any work happens.
var ErrQuotaExceeded = errors.New("draw: daily quota exceeded")

// Result is the outcome of one draw. Reward is nil when nothing was won or
// the reward was dropped; RewardDropped distinguishes the two.
type Result struct {
	Places        []catalog.Place `json:"places"`
	Reward        *inventory.Item `json:"reward,omitempty"`
	RewardDropped bool            `json:"rewardDropped"`
	Shortfall     bool            `json:"shortfall"`
	SessionID     uuid.UUID       `json:"sessionId"`
}

// Service orchestrates the draw pipeline: quota gate, candidate selection,
// rarity roll, reward admission, trip evaluation, quota increment. The
// stage order is fixed; each stage feeds the next.
type Service struct {
	selector   *Selector
	roller     *rarity.Roller
	manager    *inventory.Manager
	quotas     quota.Tracker
	coupons    catalog.CouponProvider
	publisher  *trip.Publisher
	sessions   SessionStore
	sink       notify.Sink
	dailyLimit int
	now        func() time.Time
}

func NewService(
	selector *Selector,
	roller *rarity.Roller,
	manager *inventory.Manager,
	quotas quota.Tracker,
	coupons catalog.CouponProvider,
	publisher *trip.Publisher,
	sessions SessionStore,
	sink notify.Sink,
	dailyLimit int,
) *Service {
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	if sink == nil {
		sink = notify.NopSink{}
	}
	return &Service{
		selector:   selector,
		roller:     roller,
		manager:    manager,
		quotas:     quotas,
		coupons:    coupons,
		publisher:  publisher,
		sessions:   sessions,
		sink:       sink,
		dailyLimit: dailyLimit,
		now:        time.Now,
	}
}

// SetNow overrides the clock. Test helper.
func (s *Service) SetNow(now func() time.Time) { s.now = now }

// Draw runs one gacha invocation. The daily counter is incremented only
// after the outcome is settled: a store fault mid-pipeline returns an error
// (retryable) without burning a draw.
func (s *Service) Draw(ctx context.Context, userID uuid.UUID, loc catalog.Locale, count int) (*Result, error) {
	if count <= 0 {
		count = 1
	}
	used, err := s.quotas.DailyCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("draw: daily count: %w", err)
	}
	if used >= s.dailyLimit {
		return nil, ErrQuotaExceeded
	}

	places, shortfall, err := s.selector.SelectCandidates(ctx, userID, loc, count)
	if err != nil {
		return nil, fmt.Errorf("draw: select candidates: %w", err)
	}

	res := &Result{Places: places, Shortfall: shortfall}

	// The session goes in before the roll: once a reward is admitted, the
	// only write left is the quota increment.
	sess := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		Locale:    loc,
		Requested: count,
		PlaceIDs:  placeIDs(places),
		CreatedAt: s.now(),
	}
	if err := s.sessions.Insert(ctx, sess); err != nil {
		return nil, fmt.Errorf("draw: record session: %w", err)
	}
	res.SessionID = sess.ID

	tier, won, err := s.roller.Roll(ctx)
	if err != nil {
		return nil, fmt.Errorf("draw: rarity roll: %w", err)
	}
	if won {
		if err := s.awardReward(ctx, userID, tier, res); err != nil {
			return nil, err
		}
	}

	s.evaluateTrip(ctx, sess)

	if _, err := s.quotas.Increment(ctx, userID, 1); err != nil {
		return nil, fmt.Errorf("draw: increment quota: %w", err)
	}
	return res, nil
}

// awardReward resolves a coupon for the rolled tier and admits it. A full
// inventory drops the reward but never fails the draw; a tier with no
// coupon stock quietly wins nothing beyond the places.
func (s *Service) awardReward(ctx context.Context, userID uuid.UUID, tier rarity.Tier, res *Result) error {
	coupon, err := s.coupons.RandomActive(ctx, string(tier))
	if err != nil {
		return fmt.Errorf("draw: pick coupon: %w", err)
	}
	if coupon == nil {
		return nil
	}
	item, err := s.manager.Admit(ctx, userID, inventory.Reward{
		Tier:       string(tier),
		CouponID:   &coupon.ID,
		MerchantID: &coupon.MerchantID,
		Title:      coupon.Title,
		ValidDays:  coupon.ValidDays,
	})
	if err != nil {
		return fmt.Errorf("draw: admit reward: %w", err)
	}
	if item == nil {
		res.RewardDropped = true
		return nil
	}
	res.Reward = item
	s.sink.ItemAdmitted(ctx, userID, item)
	return nil
}

// evaluateTrip publishes the composition when the dedup policy allows it.
// Publish failures are logged, not fatal: the draw already succeeded.
func (s *Service) evaluateTrip(ctx context.Context, sess *Session) {
	if s.publisher == nil {
		return
	}
	_, published, err := s.publisher.Publish(ctx, sess.Locale, sess.PlaceIDs)
	if err != nil {
		logger.Warningf("draw: publish trip for session %s: %v", sess.ID, err)
		return
	}
	if published {
		if err := s.sessions.SetPublished(ctx, sess.ID); err != nil {
			logger.Warningf("draw: flag session %s published: %v", sess.ID, err)
		}
	}
}

func placeIDs(places []catalog.Place) []int64 {
	ids := make([]int64, len(places))
	for i, p := range places {
		ids[i] = p.ID
	}
	return ids
}
