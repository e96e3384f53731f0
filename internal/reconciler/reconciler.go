package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/btcsoccer/backoffice/internal/store"
	"github.com/btcsoccer/backoffice/pkg/contracts/events"
)

// Outcome é o resultado da reconciliação de um betslip.
type Outcome int

const (
	// InsufficientFunds: nada recebido ainda; o slip segue pendente e a
	// reconciliação pode rodar de novo quantas vezes for preciso.
	InsufficientFunds Outcome = iota
	// Confirmed: valor recebido bate exatamente com o esperado.
	Confirmed
	// OverOrUnderPaid: chegou dinheiro, mas o valor não bate. Fica para
	// tratamento manual; reprocessar não resolve valor errado.
	OverOrUnderPaid
)

func (o Outcome) String() string {
	switch o {
	case Confirmed:
		return "confirmed"
	case OverOrUnderPaid:
		return "over_or_under_paid"
	default:
		return "insufficient_funds"
	}
}

// unitScale converte o stake dos bets (milésimos) para a unidade da carteira.
const unitScale = 3

// SlipStore é o recorte do repositório que a reconciliação usa.
type SlipStore interface {
	GetSlip(ctx context.Context, address string) (store.Slip, error)
	ListSlipsByState(ctx context.Context, state store.State) ([]store.Slip, error)
	MoveSlipState(ctx context.Context, address string, from, to store.State) error
	GetGame(ctx context.Context, id int64) (store.Game, error)
}

// WalletQuerier consulta o total recebido num endereço.
type WalletQuerier interface {
	AmountReceived(ctx context.Context, address string, minConf int) (decimal.Decimal, error)
}

// Notifier dispara o e-mail de confirmação. Falha aqui nunca desfaz nada.
type Notifier interface {
	Send(ctx context.Context, template string, data any, recipient, subject string) error
}

// ConfirmedPublisher publica o evento slip_confirmed.
type ConfirmedPublisher interface {
	PublishSlipConfirmed(ctx context.Context, e events.SlipConfirmed) error
}

// Reconciler confere pagamentos de betslips pendentes e move os quitados
// para a partição confirmed.
// Callbacks de métricas podem ser usadas para monitoramento de cada desfecho.
type Reconciler struct {
	Log     *zap.Logger
	Store   SlipStore
	Wallet  WalletQuerier
	Mailer  Notifier           // opcional
	Publ    ConfirmedPublisher // opcional
	MinConf int                // confirmações mínimas exigidas do pagamento
	RunID   string             // id do batch corrente, só para correlação

	OnOutcome func(Outcome) // métricas (counter++ por desfecho)
	OnError   func(string)  // métricas por fase
}

// Reconcile processa um único betslip pendente.
//
// A confirmação é um compare-and-swap pending->confirmed: se outra execução
// já moveu o slip, nada acontece de novo (sem e-mail nem evento duplicado).
func (r *Reconciler) Reconcile(ctx context.Context, slip store.Slip) (Outcome, error) {
	recv, err := r.Wallet.AmountReceived(ctx, slip.Address, r.MinConf)
	if err != nil {
		if r.OnError != nil {
			r.OnError("wallet")
		}
		return InsufficientFunds, fmt.Errorf("wallet query %s: %w", slip.Address, err)
	}

	if recv.IsZero() {
		r.Log.Info("nothing received", zap.String("slip", slip.Address))
		r.outcome(InsufficientFunds)
		return InsufficientFunds, nil
	}

	// valor esperado em BTC = soma dos stakes em milésimos / 1000, exato
	expected := decimal.New(slip.ExpectedMilli(), -unitScale)

	if !recv.Equal(expected) {
		r.Log.Warn("invalid amount received, return manually",
			zap.String("slip", slip.Address),
			zap.String("received", recv.String()),
			zap.String("expected", expected.String()),
		)
		r.outcome(OverOrUnderPaid)
		return OverOrUnderPaid, nil
	}

	if err := r.Store.MoveSlipState(ctx, slip.Address, store.StatePending, store.StateConfirmed); err != nil {
		if errors.Is(err, store.ErrStateConflict) {
			// já confirmado por uma execução concorrente ou anterior
			r.Log.Info("slip already confirmed", zap.String("slip", slip.Address))
			return Confirmed, nil
		}
		if r.OnError != nil {
			r.OnError("move")
		}
		return InsufficientFunds, fmt.Errorf("move slip %s: %w", slip.Address, err)
	}

	r.Log.Info("payment received, slip confirmed",
		zap.String("slip", slip.Address),
		zap.String("received", recv.String()),
	)
	r.outcome(Confirmed)

	// Daqui pra baixo o estado já está gravado; e-mail e evento são melhor
	// esforço e nunca desfazem a confirmação.
	r.notifyConfirmed(ctx, slip)

	if r.Publ != nil {
		evc := events.SlipConfirmed{
			Address:   slip.Address,
			AccountID: slip.AccountID,
			Amount:    recv.String(),
			RunID:     r.RunID,
			Ts:        time.Now().UTC(),
		}
		if err := r.Publ.PublishSlipConfirmed(ctx, evc); err != nil {
			r.Log.Warn("publish slip_confirmed", zap.String("slip", slip.Address), zap.Error(err))
			if r.OnError != nil {
				r.OnError("publish")
			}
		}
	}

	return Confirmed, nil
}

// ReconcileAll varre todos os betslips pendentes. Erro num slip não impede
// os demais; cancelamento do contexto interrompe entre slips.
func (r *Reconciler) ReconcileAll(ctx context.Context) error {
	slips, err := r.Store.ListSlipsByState(ctx, store.StatePending)
	if err != nil {
		return fmt.Errorf("list pending slips: %w", err)
	}

	for _, slip := range slips {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := r.Reconcile(ctx, slip); err != nil {
			r.Log.Error("reconcile failed", zap.String("slip", slip.Address), zap.Error(err))
		}
	}
	return nil
}

// betWithGame é o formato que o template de e-mail espera: cada aposta com
// uma foto do jogo correspondente, quando o jogo ainda for encontrado.
type betWithGame struct {
	GameID     int64       `json:"game"`
	Guess      string      `json:"result"`
	StakeMilli int64       `json:"amount"`
	Game       *store.Game `json:"game_data,omitempty"`
}

type slipMailData struct {
	Address   string        `json:"address"`
	AccountID string        `json:"accountid"`
	Bets      []betWithGame `json:"bets"`
}

func (r *Reconciler) notifyConfirmed(ctx context.Context, slip store.Slip) {
	if r.Mailer == nil || slip.Email == "" {
		return
	}

	data := slipMailData{Address: slip.Address, AccountID: slip.AccountID}
	for _, b := range slip.Bets {
		bg := betWithGame{GameID: b.GameID, Guess: b.Guess, StakeMilli: b.StakeMilli}
		// enriquecimento é cosmético: jogo sumido não cancela o e-mail
		if g, err := r.Store.GetGame(ctx, b.GameID); err == nil {
			bg.Game = &g
		}
		data.Bets = append(data.Bets, bg)
	}

	if err := r.Mailer.Send(ctx, "email_betslip.html", data, slip.Email, "Betslip payment received"); err != nil {
		r.Log.Warn("betslip mail failed", zap.String("slip", slip.Address), zap.Error(err))
		if r.OnError != nil {
			r.OnError("mail")
		}
	}
}

func (r *Reconciler) outcome(o Outcome) {
	if r.OnOutcome != nil {
		r.OnOutcome(o)
	}
}
