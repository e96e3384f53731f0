package reports

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/btcsoccer/backoffice/internal/aggregator"
	"github.com/btcsoccer/backoffice/internal/store"
)

type fakeReportStore struct {
	games   []store.Game
	slips   []store.Slip
	ledgers map[string][]byte

	listGamesErr error
}

func (f *fakeReportStore) ListGamesByState(_ context.Context, state store.State) ([]store.Game, error) {
	if f.listGamesErr != nil {
		return nil, f.listGamesErr
	}
	if state != store.StatePending {
		return nil, nil
	}
	return f.games, nil
}

func (f *fakeReportStore) ListSlipsByState(_ context.Context, state store.State) ([]store.Slip, error) {
	if state != store.StateConfirmed {
		return nil, nil
	}
	return f.slips, nil
}

func (f *fakeReportStore) UpsertAccountLedger(_ context.Context, accountID string, payload []byte) error {
	if f.ledgers == nil {
		f.ledgers = map[string][]byte{}
	}
	f.ledgers[accountID] = payload
	return nil
}

type fakeWallet struct {
	balance  decimal.Decimal
	dispatch decimal.Decimal
	err      error
}

func (f *fakeWallet) Balance(context.Context) (decimal.Decimal, error) {
	return f.balance, f.err
}

func (f *fakeWallet) PendingDispatchBalance(context.Context) (decimal.Decimal, error) {
	return f.dispatch, f.err
}

type fakeSink struct {
	refTime  time.Time
	payloads [][]byte
	storeErr error
}

func (f *fakeSink) StoreSnapshot(_ context.Context, payload []byte) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeSink) ReferenceTime(_ context.Context, fallback time.Time) time.Time {
	if f.refTime.IsZero() {
		return fallback
	}
	return f.refTime
}

func newGenerator(st *fakeReportStore, w *fakeWallet, sink *fakeSink) *Generator {
	return &Generator{
		Log:    zap.NewNop(),
		Store:  st,
		Wallet: w,
		Agg:    &aggregator.Aggregator{Log: zap.NewNop(), Deadline: 5 * time.Minute},
		Sink:   sink,
	}
}

func TestRunOnce(t *testing.T) {
	refTime := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	st := &fakeReportStore{
		games: []store.Game{
			{ID: 10, HomeTeam: "Ajax", AwayTeam: "PSV", Date: refTime.Add(2 * time.Hour), State: store.StatePending},
		},
		slips: []store.Slip{
			{Address: "addr1", AccountID: "acc1", State: store.StateConfirmed,
				Bets: []store.Bet{{GameID: 10, Guess: "2-1", StakeMilli: 400}}},
		},
	}
	w := &fakeWallet{balance: decimal.RequireFromString("12.5"), dispatch: decimal.RequireFromString("0.25")}
	sink := &fakeSink{refTime: refTime}

	gen := newGenerator(st, w, sink)
	require.NoError(t, gen.RunOnce(context.Background()))

	// extrato por conta gravado por inteiro
	require.Contains(t, st.ledgers, "acc1")
	var l map[string]any
	require.NoError(t, json.Unmarshal(st.ledgers["acc1"], &l))
	assert.Equal(t, []any{"addr1"}, l["slips"])

	// snapshot publicado com o relógio de referência do sink
	require.Len(t, sink.payloads, 1)
	var payload Payload
	require.NoError(t, json.Unmarshal(sink.payloads[0], &payload))
	assert.True(t, payload.Games.GeneratedAt.Equal(refTime))
	require.Len(t, payload.Games.Today, 1)
	assert.Equal(t, int64(400), payload.Games.Today[0].Total)

	assert.Equal(t, "12.5", payload.Stats.Balance)
	assert.Equal(t, "0.25", payload.Stats.BalanceDispatch)
	assert.Equal(t, 1, payload.Stats.TotalBetsOpen)
	assert.Equal(t, int64(400), payload.Stats.TotalBetsOpenMilli)
	assert.Equal(t, 1, payload.Stats.TotalBets)
	assert.Equal(t, int64(400), payload.Stats.TotalBetsMilli)
}

func TestRunOnceWalletDownStillPublishes(t *testing.T) {
	st := &fakeReportStore{}
	sink := &fakeSink{}
	gen := newGenerator(st, &fakeWallet{err: errors.New("rpc down")}, sink)

	require.NoError(t, gen.RunOnce(context.Background()))

	// saldos ficam vazios, snapshot sai mesmo assim
	require.Len(t, sink.payloads, 1)
	var payload Payload
	require.NoError(t, json.Unmarshal(sink.payloads[0], &payload))
	assert.Empty(t, payload.Stats.Balance)
	assert.Empty(t, payload.Stats.BalanceDispatch)
}

func TestRunOnceCountsSettledBetsInTotals(t *testing.T) {
	// aposta em jogo já settled: fora da grade, dentro do total geral
	st := &fakeReportStore{
		slips: []store.Slip{
			{Address: "addr1", AccountID: "acc1", State: store.StateConfirmed,
				Bets: []store.Bet{{GameID: 77, Guess: "1-0", StakeMilli: 900}}},
		},
	}
	sink := &fakeSink{}
	gen := newGenerator(st, &fakeWallet{}, sink)

	require.NoError(t, gen.RunOnce(context.Background()))

	var payload Payload
	require.NoError(t, json.Unmarshal(sink.payloads[0], &payload))
	assert.Zero(t, payload.Stats.TotalBetsOpen)
	assert.Equal(t, 1, payload.Stats.TotalBets)
	assert.Equal(t, int64(900), payload.Stats.TotalBetsMilli)
}

func TestRunOnceStoreFailureAbortsRun(t *testing.T) {
	st := &fakeReportStore{listGamesErr: errors.New("pg down")}
	sink := &fakeSink{}
	gen := newGenerator(st, &fakeWallet{}, sink)

	require.Error(t, gen.RunOnce(context.Background()))
	assert.Empty(t, sink.payloads)
}
