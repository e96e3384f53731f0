package events

import "time"

// Evento emitido pelo payment-reconciler após confirmar o pagamento de um betslip.
type SlipConfirmed struct {
	Address   string    `json:"address"` // endereço de recebimento == id do slip
	AccountID string    `json:"account_id"`
	Amount    string    `json:"amount"` // valor recebido, em BTC, string decimal exata
	RunID     string    `json:"run_id"` // correlaciona os slips de um mesmo batch
	Ts        time.Time `json:"ts"`
}
