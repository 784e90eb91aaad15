package main

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

type config struct {
	listenAddr         string
	adminAddr          string
	upstreamURL        string
	concurrencyMax     int
	concurrencyTimeout time.Duration
	retryAfter         time.Duration
	logDev             bool

	proxyBuffers    int
	proxyBufferSize int
	poolCreateRPS   float64
	poolCreateBurst int

	poolStatsEnabled       bool
	poolStatsRedisAddr     string
	poolStatsRedisPassword string
	poolStatsRedisDB       int
	poolStatsPrefix        string
	poolStatsTTL           time.Duration
	poolStatsBucket        string
	poolStatsTrackPools    bool
}

// loadDotenv carrega um .env (ou os arquivos indicados) sem sobrescrever o ambiente.
// Arquivo inexistente não é erro.
func loadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return err
		}
	}
	return nil
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.adminAddr = getenvDefault("ADMIN_ADDR", ":9090")
	cfg.upstreamURL = strings.TrimSpace(os.Getenv("UPSTREAM_URL"))
	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 100)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)
	cfg.retryAfter = getenvDurationDefault("RETRY_AFTER", 1*time.Second)
	cfg.logDev = getenvBoolDefault("LOG_DEV", false)

	cfg.proxyBuffers = getenvIntDefault("PROXY_BUFFERS", 64)
	cfg.proxyBufferSize = getenvIntDefault("PROXY_BUFFER_SIZE", 32*1024)
	// IMPORTANTE: RPS 0 desliga o ritmo de criação; os buffers nascem sob demanda.
	cfg.poolCreateRPS = getenvFloatDefault("POOL_CREATE_RPS", 0)
	cfg.poolCreateBurst = getenvIntDefault("POOL_CREATE_BURST", 8)

	cfg.poolStatsEnabled = getenvBoolDefault("POOL_STATS_ENABLED", false)
	cfg.poolStatsRedisAddr = getenvDefault("POOL_STATS_REDIS_ADDR", "")
	cfg.poolStatsRedisPassword = os.Getenv("POOL_STATS_REDIS_PASSWORD")
	cfg.poolStatsRedisDB = getenvIntDefault("POOL_STATS_REDIS_DB", 0)
	cfg.poolStatsPrefix = getenvDefault("POOL_STATS_PREFIX", "objectpool:stats")
	cfg.poolStatsTTL = getenvDurationDefault("POOL_STATS_TTL", 24*time.Hour)
	cfg.poolStatsBucket = getenvDefault("POOL_STATS_BUCKET", "minute")
	cfg.poolStatsTrackPools = getenvBoolDefault("POOL_STATS_TRACK_POOLS", false)

	if cfg.upstreamURL == "" {
		return config{}, errors.New("UPSTREAM_URL is required")
	}
	if cfg.poolStatsEnabled && strings.TrimSpace(cfg.poolStatsRedisAddr) == "" {
		return config{}, errors.New("POOL_STATS_REDIS_ADDR is required when POOL_STATS_ENABLED=true")
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if cfg.proxyBuffers < 0 {
		return config{}, errors.New("PROXY_BUFFERS must be >= 0")
	}
	if cfg.proxyBuffers > 0 && cfg.proxyBufferSize <= 0 {
		return config{}, errors.New("PROXY_BUFFER_SIZE must be > 0")
	}
	if cfg.poolCreateRPS < 0 {
		return config{}, errors.New("POOL_CREATE_RPS must be >= 0")
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		return def
	}
	return d
}
