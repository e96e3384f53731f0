package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/btcsoccer/backoffice/internal/aggregator"
	"github.com/btcsoccer/backoffice/internal/reports"
	sharedcache "github.com/btcsoccer/backoffice/internal/shared/cache"
	"github.com/btcsoccer/backoffice/internal/shared/config"
	"github.com/btcsoccer/backoffice/internal/shared/db"
	"github.com/btcsoccer/backoffice/internal/shared/logger"
	"github.com/btcsoccer/backoffice/internal/shared/metrics"
	"github.com/btcsoccer/backoffice/internal/store"
	"github.com/btcsoccer/backoffice/internal/wallet"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Métricas Prometheus da geração de relatórios
	generated := prometheus.NewCounter(prometheus.CounterOpts{Name: "reports_snapshots_generated_total", Help: "snapshots gerados"})
	failed := prometheus.NewCounter(prometheus.CounterOpts{Name: "reports_runs_failed_total", Help: "rodadas com falha"})
	prometheus.MustRegister(generated, failed)

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	// O snapshot vive 3 intervalos no Redis: some sozinho se o gerador parar
	ttl := 3 * cfg.ReportsEvery
	gen := &reports.Generator{
		Log:    log,
		Store:  store.NewPostgres(pg),
		Wallet: wallet.New(cfg.WalletRPCURL, cfg.WalletRPCUser, cfg.WalletRPCPass),
		Agg: &aggregator.Aggregator{
			Log:      log,
			Deadline: time.Duration(cfg.DeadlineMins) * time.Minute,
		},
		Sink: reports.NewRedisCache(rdb, cfg.RedisSnapshotKey, cfg.RedisReportsChannel, cfg.RedisLiveFetchKey, ttl),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("report-generator started", zap.Duration("every", cfg.ReportsEvery))

	run := func() {
		if err := gen.RunOnce(ctx); err != nil {
			// feed/banco fora do ar rende uma rodada perdida, nunca um crash
			log.Warn("report run failed", zap.Error(err))
			failed.Inc()
			return
		}
		generated.Inc()
	}

	run()
	tick := time.NewTicker(cfg.ReportsEvery)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("report-generator stopped")
			return
		case <-tick.C:
			run()
		}
	}
}
