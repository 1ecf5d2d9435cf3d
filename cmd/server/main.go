package main

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/google/logger"
	"github.com/joho/godotenv"

	gacha "github.com/trippop/gacha-reward-server"
	"github.com/trippop/gacha-reward-server/catalog"
	"github.com/trippop/gacha-reward-server/config"
	"github.com/trippop/gacha-reward-server/confstore"
	"github.com/trippop/gacha-reward-server/draw"
	"github.com/trippop/gacha-reward-server/exclusion"
	"github.com/trippop/gacha-reward-server/geo"
	"github.com/trippop/gacha-reward-server/inventory"
	"github.com/trippop/gacha-reward-server/notify"
	"github.com/trippop/gacha-reward-server/pgstore"
	"github.com/trippop/gacha-reward-server/quota"
	"github.com/trippop/gacha-reward-server/rarity"
	"github.com/trippop/gacha-reward-server/redemption"
	"github.com/trippop/gacha-reward-server/server"
	"github.com/trippop/gacha-reward-server/trip"
)

func main() {
	// Load .env so DATABASE_URL is set: cwd .env or project root .env/.env.local
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
	_ = godotenv.Load("../.env.local")

	defer logger.Init("gacha", true, false, io.Discard).Close()

	cfg := config.Load()
	ctx := context.Background()

	pool, err := gacha.GetPool(ctx)
	if err != nil {
		logger.Fatalf("connect database: %v", err)
	}
	if err := gacha.Migrate(ctx, pool); err != nil {
		logger.Fatalf("migrate: %v", err)
	}

	var (
		conf     confstore.Store
		places   catalog.PlaceProvider
		coupons  catalog.CouponProvider
		ledger   exclusion.Ledger
		items    inventory.Store
		quotas   quota.Tracker
		codes    redemption.CodeStore
		reds     redemption.Store
		trips    trip.Store
		sessions draw.SessionStore
	)
	if pool != nil {
		logger.Info("using postgres stores")
		conf = pgstore.NewConf(pool)
		places = pgstore.NewPlaces(pool)
		coupons = pgstore.NewCoupons(pool)
		ledger = pgstore.NewExclusion(pool, conf)
		items = pgstore.NewInventory(pool)
		quotas = pgstore.NewQuota(pool)
		codes = pgstore.NewCodes(pool)
		reds = pgstore.NewRedemptions(pool)
		trips = pgstore.NewTrips(pool)
		sessions = pgstore.NewSessions(pool)
	} else {
		logger.Infof("DATABASE_URL not set, using file stores under %s", cfg.DataDir)
		memConf := confstore.NewMemory(cfg.DataDir)
		conf = memConf
		places = catalog.NewMemoryPlaces(cfg.DataDir)
		coupons = catalog.NewMemoryCoupons(cfg.DataDir)
		ledger = exclusion.NewMemory(cfg.DataDir, memConf)
		items = inventory.NewMemory(cfg.DataDir)
		quotas = quota.NewMemory(cfg.DataDir)
		codes = redemption.NewMemoryCodes(cfg.DataDir)
		reds = redemption.NewMemoryStore(cfg.DataDir)
		trips = trip.NewMemory(cfg.DataDir)
		sessions = draw.NewMemorySessions(cfg.DataDir)
	}

	if err := seedConfig(ctx, conf, cfg.GachaFile); err != nil {
		logger.Fatalf("seed config: %v", err)
	}

	manager := inventory.NewManager(items)
	roller := rarity.NewRoller(conf)
	protocol := redemption.NewProtocol(items, codes, reds, coupons)

	sink := notify.LogSink{}
	svc := draw.NewService(
		draw.NewSelector(places, ledger, geo.DefaultRadii()),
		roller,
		manager,
		quotas,
		coupons,
		trip.NewPublisher(trips),
		sessions,
		sink,
		cfg.DailyDrawLimit,
	)

	go sweepLoop(ctx, protocol, cfg.SweepInterval)
	go warnLoop(ctx, manager, sink)

	srv := server.New(cfg, server.Deps{
		Draws:    svc,
		Manager:  manager,
		Protocol: protocol,
		Roller:   roller,
		Ledger:   ledger,
		Codes:    codes,
	})
	if err := srv.Run(); err != nil {
		logger.Fatalf("server: %v", err)
	}
}

// seedConfig writes the gacha.yaml defaults into the config store for keys
// no admin has touched yet. The compiled-in defaults cover a missing file.
func seedConfig(ctx context.Context, conf confstore.Store, path string) error {
	seed, err := config.LoadSeed(path)
	if err != nil {
		return err
	}
	weights := rarity.DefaultWeights()
	if len(seed.Weights) > 0 {
		weights = rarity.Weights{}
		for tier, v := range seed.Weights {
			weights[rarity.Tier(tier)] = v
		}
	}
	if err := weights.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(weights)
	if err != nil {
		return err
	}
	threshold := seed.ExclusionThreshold
	if threshold < 1 {
		threshold = exclusion.DefaultThreshold
	}
	return confstore.SeedDefaults(ctx, conf, map[[2]string]string{
		{rarity.ConfCategory, rarity.ConfKeyWeights}:         string(raw),
		{exclusion.ConfCategory, exclusion.ConfKeyThreshold}: strconv.Itoa(threshold),
	})
}

// sweepLoop force-closes verified redemptions that outlived their grace
// window.
func sweepLoop(ctx context.Context, protocol *redemption.Protocol, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		closed, err := protocol.SweepExpired(ctx)
		if err != nil {
			logger.Warningf("sweep redemptions: %v", err)
			continue
		}
		if closed > 0 {
			logger.Infof("sweep: closed %d expired redemptions", closed)
		}
	}
}

const (
	expiryWarnInterval = time.Hour
	expiryWarnDays     = 3
)

// warnLoop pushes expiry warnings for rewards whose validity window ends
// soon.
func warnLoop(ctx context.Context, manager *inventory.Manager, sink notify.Sink) {
	ticker := time.NewTicker(expiryWarnInterval)
	defer ticker.Stop()
	for range ticker.C {
		notified, err := notify.WarnExpiring(ctx, manager, sink, expiryWarnDays)
		if err != nil {
			logger.Warningf("warn expiring: %v", err)
			continue
		}
		if notified > 0 {
			logger.Infof("warn: notified %d users of expiring rewards", notified)
		}
	}
}
