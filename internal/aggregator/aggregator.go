package aggregator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/btcsoccer/backoffice/internal/store"
)

// GridSize limita o placar modelado: palpites de 0-0 até 5-5. Palpites fora
// dessa faixa devem ser barrados na entrada do slip; aqui eles só são
// descartados com log.
const GridSize = 6

// Cell é uma célula da grade de placares: total apostado naquele placar exato.
type Cell struct {
	Score int64 `json:"score"`
}

// GridRow é uma linha da grade, indexada pelos gols do visitante.
// O formato (away na linha, cols por gols do mandante) é o que o template
// de renderização consome.
type GridRow struct {
	Away int    `json:"away"`
	Cols []Cell `json:"cols"`
}

// GameView é um jogo pronto para renderização: grade zerada preenchida com
// as apostas confirmadas e total acumulado.
type GameView struct {
	ID        int64     `json:"id"`
	HomeID    int64     `json:"home_id"`
	AwayID    int64     `json:"away_id"`
	HomeTeam  string    `json:"home"`
	AwayTeam  string    `json:"away"`
	League    string    `json:"league"`
	Status    string    `json:"status"`
	Date      time.Time `json:"date"`
	HomeScore string    `json:"home_score,omitempty"`
	AwayScore string    `json:"away_score,omitempty"`
	Results   []GridRow `json:"results"`
	Total     int64     `json:"total"`
}

// Snapshot é a saída da agregação: jogos divididos em live/today/later e
// contadores globais de apostas em aberto. É somente leitura; nenhum estado
// de jogo ou slip é alterado ao gerar.
type Snapshot struct {
	Live  []GameView `json:"live"`
	Today []GameView `json:"today"`
	Later []GameView `json:"later"`

	OpenBetCount int   `json:"total_bets_open"`
	OpenBetMilli int64 `json:"total_bets_open_milli"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Aggregator cruza jogos ativos com betslips confirmados.
type Aggregator struct {
	Log *zap.Logger
	// Deadline desloca o corte do bucket live: jogos que começam antes de
	// refTime+Deadline já não aceitam apostas.
	Deadline time.Duration
}

// Aggregate monta o snapshot a partir dos jogos em consideração e dos slips
// confirmados. refTime é o "agora" do relatório; quando o feed ao vivo está
// defasado, o chamador passa o instante da última busca para o snapshot não
// divergir do dado exibido.
func (a *Aggregator) Aggregate(games []store.Game, slips []store.Slip, refTime time.Time) Snapshot {
	views := make(map[int64]*GameView, len(games))
	ordered := make([]*GameView, 0, len(games))
	for _, g := range games {
		v := newGameView(g)
		views[g.ID] = v
		ordered = append(ordered, v)
	}

	snap := Snapshot{GeneratedAt: refTime}

	for _, slip := range slips {
		for _, bet := range slip.Bets {
			v, ok := views[bet.GameID]
			if !ok {
				// aposta em jogo fora do conjunto ativo (já settled); conta
				// só no extrato da conta, não na grade
				continue
			}
			home, away, err := ParseGuess(bet.Guess)
			if err != nil {
				a.Log.Warn("skipping bet with bad guess",
					zap.String("slip", slip.Address),
					zap.Int64("game", bet.GameID),
					zap.Error(err),
				)
				continue
			}
			v.Results[away].Cols[home].Score += bet.StakeMilli
			v.Total += bet.StakeMilli
			snap.OpenBetCount++
			snap.OpenBetMilli += bet.StakeMilli
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	// Janelas semiabertas: um jogo exatamente no corte cai no bucket seguinte.
	liveCutoff := refTime.Add(a.Deadline)
	y, m, d := refTime.UTC().Date()
	dayCutoff := time.Date(y, m, d, 23, 59, 59, 0, time.UTC)

	for _, v := range ordered {
		switch {
		case v.Date.Before(liveCutoff):
			snap.Live = append(snap.Live, *v)
		case v.Date.Before(dayCutoff):
			snap.Today = append(snap.Today, *v)
		default:
			snap.Later = append(snap.Later, *v)
		}
	}

	return snap
}

func newGameView(g store.Game) *GameView {
	v := &GameView{
		ID:       g.ID,
		HomeID:   g.HomeID,
		AwayID:   g.AwayID,
		HomeTeam: g.HomeTeam,
		AwayTeam: g.AwayTeam,
		League:   g.League,
		Status:   g.Status,
		Date:     g.Date,
	}

	// placar real não passa pelo limite da grade; 7-0 acontece
	if parts := strings.SplitN(g.Result, "-", 2); len(parts) == 2 {
		v.HomeScore, v.AwayScore = parts[0], parts[1]
	}

	v.Results = make([]GridRow, GridSize)
	for a := range v.Results {
		v.Results[a] = GridRow{Away: a, Cols: make([]Cell, GridSize)}
	}
	return v
}

// ParseGuess decompõe um placar "H-A" nos gols de mandante e visitante,
// exigindo que ambos caibam na grade.
func ParseGuess(s string) (home, away int, err error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bad score %q", s)
	}
	if home, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("bad score %q", s)
	}
	if away, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("bad score %q", s)
	}
	if home < 0 || home >= GridSize || away < 0 || away >= GridSize {
		return 0, 0, fmt.Errorf("score %q out of grid", s)
	}
	return home, away, nil
}
