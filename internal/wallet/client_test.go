package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rpcServer(t *testing.T, handler func(method string, params []any) (string, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "rpcuser", user)
		assert.Equal(t, "rpcpass", pass)

		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rpcErr := handler(req.Method, req.Params)
		if rpcErr != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]any{"result": nil, "error": rpcErr})
			return
		}
		// resultado vai cru no corpo pra testar a leitura exata do número
		_, _ = w.Write([]byte(`{"result":` + result + `,"error":null}`))
	}))
}

func TestAmountReceivedExactDecimal(t *testing.T) {
	srv := rpcServer(t, func(method string, params []any) (string, *rpcError) {
		assert.Equal(t, "getreceivedbyaddress", method)
		require.Len(t, params, 2)
		assert.Equal(t, "1BetAddr", params[0])
		assert.Equal(t, float64(0), params[1]) // json decodifica números como float64
		return "1.5", nil
	})
	defer srv.Close()

	c := New(srv.URL, "rpcuser", "rpcpass")
	got, err := c.AmountReceived(context.Background(), "1BetAddr", 0)
	require.NoError(t, err)

	// o número chega como texto e vira decimal sem passar por float64
	assert.True(t, got.Equal(decimal.New(15, -1)), "got %s", got)
}

func TestBalanceAndDispatch(t *testing.T) {
	srv := rpcServer(t, func(method string, params []any) (string, *rpcError) {
		assert.Equal(t, "getbalance", method)
		if len(params) == 1 {
			assert.Equal(t, "dispatch", params[0])
			return "0.25", nil
		}
		return "12.00000001", nil
	})
	defer srv.Close()

	c := New(srv.URL, "rpcuser", "rpcpass")

	bal, err := c.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "12.00000001", bal.String())

	disp, err := c.PendingDispatchBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.25", disp.String())
}

func TestRPCError(t *testing.T) {
	srv := rpcServer(t, func(string, []any) (string, *rpcError) {
		return "", &rpcError{Code: -32601, Message: "Method not found"}
	})
	defer srv.Close()

	c := New(srv.URL, "rpcuser", "rpcpass")
	_, err := c.Balance(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Method not found")
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, "rpcuser", "rpcpass")
	_, err := c.AmountReceived(context.Background(), "1BetAddr", 0)
	assert.Error(t, err)
}
