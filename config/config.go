package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port           int
	DataDir        string
	DatabaseURL    string
	GachaFile      string // YAML file with seed defaults (weights, threshold)
	DailyDrawLimit int
	SweepInterval  time.Duration
}

func Load() *Config {
	port := 8081
	// Prefer PORT (Render, Fly.io, Railway, etc.) then GACHA_PORT
	if p := os.Getenv("PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			port = v
		}
	} else if p := os.Getenv("GACHA_PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			port = v
		}
	}
	dataDir := os.Getenv("GACHA_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	gachaFile := os.Getenv("GACHA_FILE")
	if gachaFile == "" {
		gachaFile = "gacha.yaml"
	}
	dailyLimit := 3
	if d := os.Getenv("GACHA_DAILY_LIMIT"); d != "" {
		if v, err := strconv.Atoi(d); err == nil && v > 0 {
			dailyLimit = v
		}
	}
	sweepInterval := 30 * time.Second
	if s := os.Getenv("GACHA_SWEEP_INTERVAL"); s != "" {
		if v, err := time.ParseDuration(s); err == nil && v > 0 {
			sweepInterval = v
		}
	}
	return &Config{
		Port:           port,
		DataDir:        dataDir,
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		GachaFile:      gachaFile,
		DailyDrawLimit: dailyLimit,
		SweepInterval:  sweepInterval,
	}
}
