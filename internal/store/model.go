package store

import "time"

// State identifica a partição (estágio do ciclo de vida) em que um registro está.
type State string

const (
	// Jogos: pending -> settled; process/archive são promovidos manualmente
	// pelo fluxo de pagamento de prêmios e nunca voltam.
	StatePending    State = "pending"
	StateSettled    State = "settled"
	StateProcessing State = "processing"
	StateArchived   State = "archived"

	// Betslips: pending -> confirmed, uma única vez.
	StateConfirmed State = "confirmed"
)

// terminalStatuses são os valores de status do feed que encerram um jogo.
var terminalStatuses = map[string]bool{
	"Finished":     true,
	"Abandoned":    true,
	"Cancelled":    true,
	"Postponed":    true,
	"Finished AET": true,
	"Finished AP":  true,
}

// TerminalStatus informa se o status do feed encerra o jogo.
func TerminalStatus(status string) bool {
	return terminalStatuses[status]
}

// Game é o registro de um jogo vindo do feed.
// O ID é o identificador estável do feed, mantido entre atualizações.
type Game struct {
	ID              int64
	HomeID          int64
	AwayID          int64
	HomeTeam        string
	AwayTeam        string
	League          string
	Status          string // texto livre do feed ("Finished", "45'", ...)
	Date            time.Time
	Result          string // "H-A", vazio enquanto não houver placar
	HomeGoalDetails string
	AwayGoalDetails string
	State           State
}

// Bet é um palpite dentro de um betslip.
// StakeMilli é o valor apostado em milésimos de BTC (inteiro, sem float).
type Bet struct {
	GameID     int64
	Guess      string // "H-A"
	StakeMilli int64
}

// Slip é um betslip: conjunto ordenado de apostas pago por um único endereço.
// O endereço de recebimento é o identificador do slip.
type Slip struct {
	Address   string
	AccountID string
	Email     string
	State     State
	CreatedAt time.Time
	Bets      []Bet
}

// ExpectedMilli soma os valores apostados do slip, em milésimos de BTC.
func (s Slip) ExpectedMilli() int64 {
	var total int64
	for _, b := range s.Bets {
		total += b.StakeMilli
	}
	return total
}
