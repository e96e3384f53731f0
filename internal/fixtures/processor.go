package fixtures

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/btcsoccer/backoffice/internal/store"
	"github.com/btcsoccer/backoffice/pkg/contracts/events"
)

// GameStore é o recorte do repositório que o processamento de jogos usa.
type GameStore interface {
	UpsertPending(ctx context.Context, g store.Game) (store.UpsertResult, error)
	SettleGame(ctx context.Context, g store.Game) (store.UpsertResult, error)
}

// Processor consome match_updates do Kafka e aplica cada jogo no repositório:
// status terminal encerra o jogo, o resto só atualiza a partição pending.
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa.
type Processor struct {
	Log    *zap.Logger
	Reader *kafka.Reader
	Store  GameStore

	OnConsumed func()       // métricas (counter++)
	OnApplied  func(string) // métricas por efeito: created|updated|settled|skipped
	OnError    func(string) // métricas por fase
}

// Run inicia o loop principal de consumo e aplicação dos jogos.
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			if p.OnError != nil {
				p.OnError("read")
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		var mu events.MatchUpdate
		if err := json.Unmarshal(m.Value, &mu); err != nil {
			p.Log.Warn("invalid message", zap.Error(err))
			if p.OnError != nil {
				p.OnError("decode")
			}
			continue
		}

		effect, err := p.apply(ctx, mu)
		if err != nil {
			p.Log.Warn("apply match failed", zap.Int64("match_id", mu.MatchID), zap.Error(err))
			if p.OnError != nil {
				p.OnError("store")
			}
			continue
		}
		if p.OnApplied != nil {
			p.OnApplied(effect)
		}
	}
}

// apply grava um jogo respeitando a precedência de partições: settled,
// processing e archived nunca são tocados; pending é criado ou atualizado.
func (p *Processor) apply(ctx context.Context, mu events.MatchUpdate) (string, error) {
	g := store.Game{
		ID:              mu.MatchID,
		HomeID:          mu.HomeID,
		AwayID:          mu.AwayID,
		HomeTeam:        mu.HomeTeam,
		AwayTeam:        mu.AwayTeam,
		League:          mu.League,
		Status:          mu.Status,
		Date:            mu.Date,
		Result:          mu.Result,
		HomeGoalDetails: mu.HomeGoalDetails,
		AwayGoalDetails: mu.AwayGoalDetails,
	}

	if store.TerminalStatus(mu.Status) {
		res, err := p.Store.SettleGame(ctx, g)
		if err != nil {
			return "", err
		}
		if res == store.UpsertSkipped {
			return "skipped", nil
		}
		p.Log.Info("game settled",
			zap.Int64("match_id", g.ID),
			zap.String("status", g.Status),
			zap.String("result", g.Result),
		)
		return "settled", nil
	}

	res, err := p.Store.UpsertPending(ctx, g)
	if err != nil {
		return "", err
	}
	switch res {
	case store.UpsertCreated:
		return "created", nil
	case store.UpsertUpdated:
		return "updated", nil
	default:
		return "skipped", nil
	}
}
