package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/btcsoccer/backoffice/internal/aggregator"
	"github.com/btcsoccer/backoffice/internal/ledger"
	"github.com/btcsoccer/backoffice/internal/store"
)

// Stats é o bloco de estatísticas do relatório. Saldos em string decimal;
// vazios quando a carteira não respondeu nesta rodada.
type Stats struct {
	Balance         string `json:"balance"`
	BalanceDispatch string `json:"balance_dispatch"`

	TotalBetsOpen      int   `json:"total_bets_open"`
	TotalBetsOpenMilli int64 `json:"total_bets_open_milli"`
	TotalBets          int   `json:"total_bets"`
	TotalBetsMilli     int64 `json:"total_bets_milli"`
}

// Payload é o documento completo que a camada de renderização consome.
type Payload struct {
	Games aggregator.Snapshot `json:"games"`
	Stats Stats               `json:"stats"`
}

// ReportStore é o recorte do repositório usado na geração de relatórios.
type ReportStore interface {
	ListGamesByState(ctx context.Context, state store.State) ([]store.Game, error)
	ListSlipsByState(ctx context.Context, state store.State) ([]store.Slip, error)
	UpsertAccountLedger(ctx context.Context, accountID string, payload []byte) error
}

// BalanceQuerier consulta os saldos exibidos no bloco de estatísticas.
type BalanceQuerier interface {
	Balance(ctx context.Context) (decimal.Decimal, error)
	PendingDispatchBalance(ctx context.Context) (decimal.Decimal, error)
}

// SnapshotSink é onde o snapshot final é publicado.
type SnapshotSink interface {
	StoreSnapshot(ctx context.Context, payload []byte) error
	ReferenceTime(ctx context.Context, fallback time.Time) time.Time
}

// Generator monta o snapshot de agregação e os extratos por conta.
// Cada execução lê o conteúdo corrente das partições e sobrescreve as
// saídas; rodar duas vezes seguidas produz o mesmo resultado.
type Generator struct {
	Log    *zap.Logger
	Store  ReportStore
	Wallet BalanceQuerier
	Agg    *aggregator.Aggregator
	Sink   SnapshotSink
}

// RunOnce gera uma rodada completa: snapshot de jogos, extratos e stats.
func (g *Generator) RunOnce(ctx context.Context) error {
	games, err := g.Store.ListGamesByState(ctx, store.StatePending)
	if err != nil {
		return fmt.Errorf("list pending games: %w", err)
	}
	slips, err := g.Store.ListSlipsByState(ctx, store.StateConfirmed)
	if err != nil {
		return fmt.Errorf("list confirmed slips: %w", err)
	}

	refTime := g.Sink.ReferenceTime(ctx, time.Now().UTC())
	snap := g.Agg.Aggregate(games, slips, refTime)

	ledgers, totals := ledger.Build(slips)
	for accountID, l := range ledgers {
		payload, err := json.Marshal(l)
		if err != nil {
			return fmt.Errorf("marshal ledger %s: %w", accountID, err)
		}
		if err := g.Store.UpsertAccountLedger(ctx, accountID, payload); err != nil {
			// um extrato com problema não segura os demais nem o snapshot
			g.Log.Error("ledger write failed", zap.String("account", accountID), zap.Error(err))
		}
	}

	stats := Stats{
		TotalBetsOpen:      snap.OpenBetCount,
		TotalBetsOpenMilli: snap.OpenBetMilli,
		TotalBets:          totals.BetCount,
		TotalBetsMilli:     totals.StakeMilli,
	}

	// saldos são informativos; carteira fora do ar não cancela a rodada
	if bal, err := g.Wallet.Balance(ctx); err != nil {
		g.Log.Warn("wallet balance unavailable", zap.Error(err))
	} else {
		stats.Balance = bal.String()
	}
	if bal, err := g.Wallet.PendingDispatchBalance(ctx); err != nil {
		g.Log.Warn("wallet dispatch balance unavailable", zap.Error(err))
	} else {
		stats.BalanceDispatch = bal.String()
	}

	payload, err := json.Marshal(Payload{Games: snap, Stats: stats})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := g.Sink.StoreSnapshot(ctx, payload); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}

	g.Log.Info("report snapshot generated",
		zap.Int("games", len(games)),
		zap.Int("accounts", len(ledgers)),
		zap.Int("open_bets", snap.OpenBetCount),
		zap.Time("ref_time", refTime),
	)
	return nil
}
