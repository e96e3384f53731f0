package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/btcsoccer/backoffice/internal/fixtures"
	"github.com/btcsoccer/backoffice/internal/shared/config"
	"github.com/btcsoccer/backoffice/internal/shared/db"
	"github.com/btcsoccer/backoffice/internal/shared/kafka"
	"github.com/btcsoccer/backoffice/internal/shared/logger"
	"github.com/btcsoccer/backoffice/internal/shared/metrics"
	"github.com/btcsoccer/backoffice/internal/store"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres: repositório particionado de jogos
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Kafka consumer: consome match_updates publicados pelo ingest
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicMatchUpdates, "fixture-processor")
	defer reader.Close()

	// Métricas Prometheus do processamento de jogos
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "fixtures_messages_consumed_total", Help: "mensagens consumidas"})
	applied := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "fixtures_applied_total", Help: "jogos aplicados por efeito"}, []string{"effect"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "fixtures_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, applied, errorsBy)

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	proc := &fixtures.Processor{
		Log:        log,
		Reader:     reader,
		Store:      store.NewPostgres(pg),
		OnConsumed: func() { consumed.Inc() },
		OnApplied:  func(effect string) { applied.WithLabelValues(effect).Inc() },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("fixture-processor started", zap.String("consume", cfg.TopicMatchUpdates))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("fixture-processor stopped")
}
