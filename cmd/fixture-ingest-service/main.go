package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/btcsoccer/backoffice/internal/feed"
	sharedcache "github.com/btcsoccer/backoffice/internal/shared/cache"
	"github.com/btcsoccer/backoffice/internal/shared/config"
	"github.com/btcsoccer/backoffice/internal/shared/kafka"
	"github.com/btcsoccer/backoffice/internal/shared/logger"
	"github.com/btcsoccer/backoffice/internal/shared/metrics"
	"github.com/btcsoccer/backoffice/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Redis guarda o instante da última busca do placar ao vivo; o
	// report-generator usa isso como relógio de referência
	rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka producer: publica cada jogo lido do feed em match_updates
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMatchUpdates)
	defer writer.Close()

	client := feed.NewClient(cfg.FeedURL, cfg.FeedKey, cfg.Leagues, log)

	// Métricas Prometheus do pipeline de ingestão
	published := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "feed_matches_published_total", Help: "jogos publicados no kafka"}, []string{"source"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "feed_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(published, errorsBy)

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("fixture-ingest started",
		zap.Duration("fixtures_every", cfg.FixtureEvery),
		zap.Duration("live_every", cfg.LiveEvery),
		zap.Strings("leagues", cfg.Leagues),
	)

	publish := func(source string, matches []events.MatchUpdate) {
		for _, m := range matches {
			b, _ := json.Marshal(m)
			if err := kafka.WriteJSON(ctx, writer, strconv.FormatInt(m.MatchID, 10), b); err != nil {
				log.Warn("publish match failed", zap.Int64("match_id", m.MatchID), zap.Error(err))
				errorsBy.WithLabelValues("publish").Inc()
				continue
			}
			published.WithLabelValues(source).Inc()
		}
	}

	fetchFixtures := func() {
		start := time.Now().UTC().AddDate(0, 0, -cfg.MaxDaysBefore)
		end := time.Now().UTC().AddDate(0, 0, cfg.MaxDaysAfter)
		matches, err := client.Fixtures(ctx, start, end)
		if err != nil {
			log.Warn("fixtures fetch failed", zap.Error(err))
			errorsBy.WithLabelValues("fixtures").Inc()
			return
		}
		publish(feed.SourceFixtures, matches)
		log.Info("fixtures fetched", zap.Int("matches", len(matches)))
	}

	fetchLive := func() {
		matches, err := client.LiveScores(ctx)
		if err != nil {
			log.Warn("livescore fetch failed", zap.Error(err))
			errorsBy.WithLabelValues("livescore").Inc()
			return
		}
		publish(feed.SourceLivescore, matches)

		// registra o instante da busca para o relógio de referência dos relatórios
		now := time.Now().UTC().Format(time.RFC3339)
		if err := rdb.Set(ctx, cfg.RedisLiveFetchKey, now, 0).Err(); err != nil {
			log.Warn("live fetch timestamp set failed", zap.Error(err))
			errorsBy.WithLabelValues("redis").Inc()
		}
	}

	fetchFixtures()
	fetchLive()

	fixturesTick := time.NewTicker(cfg.FixtureEvery)
	defer fixturesTick.Stop()
	liveTick := time.NewTicker(cfg.LiveEvery)
	defer liveTick.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("fixture-ingest stopped")
			return
		case <-fixturesTick.C:
			fetchFixtures()
		case <-liveTick.C:
			fetchLive()
		}
	}
}
