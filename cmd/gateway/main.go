package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/phax/ph-commons-sub015/objectpool"
	"github.com/phax/ph-commons-sub015/objectpool/domain"
	"github.com/phax/ph-commons-sub015/objectpool/infra"
	"github.com/phax/ph-commons-sub015/registry"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	dotenvErr := loadDotenv()

	log := newLogger(getenvBoolDefault("LOG_DEV", false))
	defer func() { _ = log.Sync() }()

	if dotenvErr != nil {
		log.Fatal("dotenv error", zap.Error(dotenvErr))
	}
	cfg, err := readConfig()
	if err != nil {
		log.Fatal("config error", zap.Error(err))
	}

	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		log.Fatal("invalid UPSTREAM_URL", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var statsStore domain.StatsStore = infra.NewMemoryStatsStore(infra.WithTrackPools(cfg.poolStatsTrackPools))
	if cfg.poolStatsEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.poolStatsRedisAddr,
			Password: cfg.poolStatsRedisPassword,
			DB:       cfg.poolStatsRedisDB,
		})
		defer func() { _ = rdb.Close() }()

		if err := pingRedis(ctx, rdb, 15*time.Second, log); err != nil {
			log.Fatal("redis stats ping error", zap.Error(err))
		}

		statsStore = infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.poolStatsPrefix),
			infra.WithStatsTTL(cfg.poolStatsTTL),
			infra.WithStatsBucket(cfg.poolStatsBucket),
			infra.WithStatsTrackPools(cfg.poolStatsTrackPools),
		)
	}

	scope := registry.NewScope("gateway", registry.Hooks{
		OnCreated: func(key string, v any) {
			log.Info("pool registered", zap.String("pool", key))
		},
		OnBeforeDestroy: func(key string, v any) {
			if p, ok := v.(domain.Inspectable); ok {
				p.ClearUnused()
			}
		},
	}, registry.WithLogger(log))
	defer scope.Destroy()

	poolOpts := func(name string) []infra.PoolOption {
		return []infra.PoolOption{infra.WithName(name), infra.WithLogger(log), infra.WithStats(statsStore)}
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn("proxy error", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	if cfg.proxyBuffers > 0 {
		buffers, err := registry.Resolve(scope, "proxy-buffers", func() (*infra.FixedPool[*objectpool.Buffer], error) {
			factory := objectpool.NewBufferFactory(cfg.proxyBufferSize)
			if cfg.poolCreateRPS > 0 {
				factory = infra.NewThrottledFactory(factory, cfg.poolCreateRPS, cfg.poolCreateBurst)
			}
			return infra.New(cfg.proxyBuffers, factory, poolOpts("proxy-buffers")...)
		})
		if err != nil {
			log.Fatal("proxy buffer pool error", zap.Error(err))
		}
		proxy.BufferPool = objectpool.NewProxyBufferPool(buffers, cfg.proxyBufferSize, log)
	}

	var slots domain.ObjectPool[*objectpool.Token]
	if cfg.concurrencyMax > 0 {
		tokens, err := registry.Resolve(scope, "concurrency", func() (*infra.FixedPool[*objectpool.Token], error) {
			return objectpool.NewTokenPool(cfg.concurrencyMax, poolOpts("concurrency")...)
		})
		if err != nil {
			log.Fatal("concurrency pool error", zap.Error(err))
		}
		slots = tokens
	}

	h := http.Handler(proxy)
	if slots != nil {
		h = objectpool.ConcurrencyMiddleware(objectpool.ConcurrencyOptions{
			Pool:           slots,
			RejectStatus:   http.StatusServiceUnavailable,
			AcquireTimeout: cfg.concurrencyTimeout,
			RetryAfter:     cfg.retryAfter,
			Log:            log,
		})(h)
	}

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}
	servers := []*http.Server{srv}

	if cfg.adminAddr != "" {
		promReg := prometheus.NewRegistry()
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			infra.NewCollector("gateway", func() []domain.Snapshot { return snapshots(scope) }, log),
		)
		var memStats *infra.MemoryStatsStore
		if m, ok := statsStore.(*infra.MemoryStatsStore); ok {
			memStats = m
		}
		admin := &http.Server{
			Addr: cfg.adminAddr,
			Handler: objectpool.NewAdminHandler(objectpool.AdminOptions{
				Pools:    func() []domain.Inspectable { return inspectables(scope) },
				Stats:    memStats,
				Gatherer: promReg,
				Log:      log,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		servers = append(servers, admin)

		go func() {
			log.Info("admin listening", zap.String("addr", cfg.adminAddr))
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("admin server error", zap.Error(err))
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, s := range servers {
			_ = s.Shutdown(shutdownCtx)
		}
	}()

	log.Info("gateway listening",
		zap.String("addr", cfg.listenAddr), zap.Stringer("upstream", target), zap.Bool("logDev", cfg.logDev))
	log.Info("pools",
		zap.Int("concurrencyMax", cfg.concurrencyMax), zap.Duration("acquireTimeout", cfg.concurrencyTimeout),
		zap.Int("proxyBuffers", cfg.proxyBuffers), zap.Int("proxyBufferSize", cfg.proxyBufferSize),
		zap.Float64("createRPS", cfg.poolCreateRPS), zap.Int("createBurst", cfg.poolCreateBurst))
	log.Info("pool-stats",
		zap.Bool("redis", cfg.poolStatsEnabled), zap.String("redisAddr", cfg.poolStatsRedisAddr),
		zap.String("bucket", cfg.poolStatsBucket), zap.Duration("ttl", cfg.poolStatsTTL),
		zap.Bool("trackPools", cfg.poolStatsTrackPools))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", zap.Error(err))
	}
}

func newLogger(dev bool) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if dev {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		panic(fmt.Sprintf("logger error: %v", err))
	}
	return log
}

// pingRedis tenta o PING com backoff exponencial até maxElapsed ou até ctx encerrar.
func pingRedis(ctx context.Context, rdb *redis.Client, maxElapsed time.Duration, log *zap.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed

	return backoff.RetryNotify(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return rdb.Ping(pingCtx).Err()
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		log.Warn("redis ping failed, retrying", zap.Error(err), zap.Duration("in", next))
	})
}

func inspectables(scope *registry.Scope) []domain.Inspectable {
	var out []domain.Inspectable
	scope.Each(func(_ string, v any) {
		if p, ok := v.(domain.Inspectable); ok {
			out = append(out, p)
		}
	})
	return out
}

func snapshots(scope *registry.Scope) []domain.Snapshot {
	pools := inspectables(scope)
	out := make([]domain.Snapshot, 0, len(pools))
	for _, p := range pools {
		out = append(out, p.Snapshot())
	}
	return out
}
