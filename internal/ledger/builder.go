package ledger

import (
	"strconv"

	"github.com/btcsoccer/backoffice/internal/store"
)

// Entry é uma aposta confirmada vista do extrato da conta.
type Entry struct {
	GameID     int64  `json:"game"`
	Guess      string `json:"result"`
	StakeMilli int64  `json:"amount"`
	Slip       string `json:"slip"`
}

// Ledger é o extrato de uma conta: apostas agrupadas por jogo mais os slips
// que contribuíram. É gravado por inteiro a cada geração, então reprocessar
// os mesmos slips produz exatamente o mesmo registro.
type Ledger struct {
	AccountID  string             `json:"accountid"`
	Slips      []string           `json:"slips"`
	Games      map[string][]Entry `json:"games"` // chave: id do jogo em decimal
	BetCount   int                `json:"bet_count"`
	TotalMilli int64              `json:"total_milli"`
}

// Totals acumula os contadores globais de apostas confirmadas, usados no
// bloco de estatísticas do relatório.
type Totals struct {
	BetCount   int
	StakeMilli int64
}

// Build reagrupa os betslips confirmados por conta. Entrada intacta; a ordem
// dos slips de cada conta segue a ordem recebida.
func Build(slips []store.Slip) (map[string]Ledger, Totals) {
	ledgers := make(map[string]Ledger)
	var totals Totals

	for _, slip := range slips {
		l, ok := ledgers[slip.AccountID]
		if !ok {
			l = Ledger{AccountID: slip.AccountID, Games: make(map[string][]Entry)}
		}

		for _, bet := range slip.Bets {
			key := strconv.FormatInt(bet.GameID, 10)
			l.Games[key] = append(l.Games[key], Entry{
				GameID:     bet.GameID,
				Guess:      bet.Guess,
				StakeMilli: bet.StakeMilli,
				Slip:       slip.Address,
			})
			l.BetCount++
			l.TotalMilli += bet.StakeMilli

			totals.BetCount++
			totals.StakeMilli += bet.StakeMilli
		}

		l.Slips = append(l.Slips, slip.Address)
		ledgers[slip.AccountID] = l
	}

	return ledgers, totals
}
