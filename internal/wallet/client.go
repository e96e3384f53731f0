package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Client fala JSON-RPC com o bitcoind que recebe os pagamentos dos betslips.
// Todos os valores trafegam como decimal exato; float64 nunca entra aqui,
// senão comparações de pagamento integral dariam falso negativo.
type Client struct {
	URL  string
	User string
	Pass string
	HTTP *http.Client

	// DispatchAccount é a conta usada para os pagamentos de prêmios.
	DispatchAccount string
}

func New(url, user, pass string) *Client {
	return &Client{
		URL:             url,
		User:            user,
		Pass:            pass,
		HTTP:            &http.Client{Timeout: 5 * time.Second},
		DispatchAccount: "dispatch",
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	// Result fica como texto cru para o decimal ser construído sem passar
	// por float64.
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// AmountReceived retorna o total recebido num endereço com pelo menos
// minConf confirmações.
func (c *Client) AmountReceived(ctx context.Context, address string, minConf int) (decimal.Decimal, error) {
	return c.callDecimal(ctx, "getreceivedbyaddress", address, minConf)
}

// Balance retorna o saldo total da carteira.
func (c *Client) Balance(ctx context.Context) (decimal.Decimal, error) {
	return c.callDecimal(ctx, "getbalance")
}

// PendingDispatchBalance retorna o saldo reservado para pagamento de prêmios.
func (c *Client) PendingDispatchBalance(ctx context.Context) (decimal.Decimal, error) {
	return c.callDecimal(ctx, "getbalance", c.DispatchAccount)
}

func (c *Client) callDecimal(ctx context.Context, method string, params ...any) (decimal.Decimal, error) {
	raw, err := c.call(ctx, method, params)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(string(bytes.TrimSpace(raw)))
	if err != nil {
		return decimal.Zero, fmt.Errorf("wallet %s: bad amount %q: %w", method, raw, err)
	}
	return d, nil
}

func (c *Client) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(rpcRequest{JSONRPC: "1.0", ID: "backoffice", Method: method, Params: params})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.User, c.Pass)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wallet %s: %w", method, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 && res.StatusCode != http.StatusInternalServerError {
		// bitcoind devolve 500 com corpo JSON em erros de RPC; os demais
		// códigos são falha de transporte mesmo
		return nil, fmt.Errorf("wallet %s: http %d", method, res.StatusCode)
	}

	var out rpcResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("wallet %s: decode: %w", method, err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("wallet %s: rpc %d: %s", method, out.Error.Code, out.Error.Message)
	}
	return out.Result, nil
}
