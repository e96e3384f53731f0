package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Mailer envia e-mails via relay HTTP interno, que resolve o template e faz o
// disparo de fato. O envio é melhor esforço: quem chama loga o erro e segue.
type Mailer struct {
	BaseURL string
	HTTP    *http.Client
}

func NewMailer(base string) *Mailer {
	return &Mailer{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

type sendRequest struct {
	Template  string `json:"template"`
	Data      any    `json:"data"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
}

// Send pede ao relay a renderização e envio de um template para o destinatário.
func (m *Mailer) Send(ctx context.Context, template string, data any, recipient, subject string) error {
	body, err := json.Marshal(sendRequest{
		Template:  template,
		Data:      data,
		Recipient: recipient,
		Subject:   subject,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := m.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("mail relay http %d", res.StatusCode)
	}
	return nil
}
