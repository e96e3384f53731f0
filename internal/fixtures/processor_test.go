package fixtures

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/btcsoccer/backoffice/internal/store"
	"github.com/btcsoccer/backoffice/pkg/contracts/events"
)

type fakeGameStore struct {
	upserts []store.Game
	settles []store.Game

	upsertResult store.UpsertResult
	settleResult store.UpsertResult
	err          error
}

func (f *fakeGameStore) UpsertPending(_ context.Context, g store.Game) (store.UpsertResult, error) {
	f.upserts = append(f.upserts, g)
	return f.upsertResult, f.err
}

func (f *fakeGameStore) SettleGame(_ context.Context, g store.Game) (store.UpsertResult, error) {
	f.settles = append(f.settles, g)
	return f.settleResult, f.err
}

func matchUpdate(status string) events.MatchUpdate {
	return events.MatchUpdate{
		MatchID:  364951,
		HomeID:   9,
		AwayID:   14,
		HomeTeam: "Ajax",
		AwayTeam: "PSV",
		League:   "Eredivisie",
		Status:   status,
		Date:     time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC),
	}
}

func TestApplyPendingUpdate(t *testing.T) {
	st := &fakeGameStore{upsertResult: store.UpsertUpdated}
	p := &Processor{Log: zap.NewNop(), Store: st}

	effect, err := p.apply(context.Background(), matchUpdate("45'"))
	require.NoError(t, err)
	assert.Equal(t, "updated", effect)
	require.Len(t, st.upserts, 1)
	assert.Empty(t, st.settles)
	assert.Equal(t, int64(364951), st.upserts[0].ID)
}

func TestApplyNewGame(t *testing.T) {
	st := &fakeGameStore{upsertResult: store.UpsertCreated}
	p := &Processor{Log: zap.NewNop(), Store: st}

	effect, err := p.apply(context.Background(), matchUpdate(""))
	require.NoError(t, err)
	assert.Equal(t, "created", effect)
}

func TestApplyTerminalStatusSettles(t *testing.T) {
	for _, status := range []string{"Finished", "Abandoned", "Cancelled", "Postponed", "Finished AET", "Finished AP"} {
		t.Run(status, func(t *testing.T) {
			st := &fakeGameStore{settleResult: store.UpsertUpdated}
			p := &Processor{Log: zap.NewNop(), Store: st}

			mu := matchUpdate(status)
			mu.Result = "2-1"
			effect, err := p.apply(context.Background(), mu)
			require.NoError(t, err)
			assert.Equal(t, "settled", effect)
			assert.Empty(t, st.upserts)
			require.Len(t, st.settles, 1)
			assert.Equal(t, "2-1", st.settles[0].Result)
		})
	}
}

func TestApplySkipsPromotedGames(t *testing.T) {
	// jogo já em settled/processing/archived nunca volta pra pending
	st := &fakeGameStore{upsertResult: store.UpsertSkipped}
	p := &Processor{Log: zap.NewNop(), Store: st}

	effect, err := p.apply(context.Background(), matchUpdate("Halftime"))
	require.NoError(t, err)
	assert.Equal(t, "skipped", effect)
}

func TestApplyStoreError(t *testing.T) {
	st := &fakeGameStore{err: errors.New("pg down")}
	p := &Processor{Log: zap.NewNop(), Store: st}

	_, err := p.apply(context.Background(), matchUpdate("45'"))
	assert.Error(t, err)
}
