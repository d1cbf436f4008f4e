package brains

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmdelhajj/whatsapp-bot-complete/internal/metrics"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(Config{
		BaseURL: server.URL,
		APIKey:  "brains-key",
		Timeout: 2 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics.NewNop())
}

func TestFindAccountByPhoneArrayResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "+96171000000", r.URL.Query().Get("phone"))
		assert.Equal(t, "brains-key", r.Header.Get("X-Api-Key"))
		_, _ = w.Write([]byte(`[{"AccoCode":"ACC001","AccoName":"Ali Hassan","Balance":-150000,"CreditLimit":1000000,"Phone":"+96171000000"}]`))
	})

	acc, err := client.FindAccountByPhone(context.Background(), "+96171000000")
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, "ACC001", acc.AccountCode)
	assert.Equal(t, "Ali Hassan", acc.Name)
	assert.Equal(t, -150000.0, acc.Balance)
	assert.Equal(t, 1000000.0, acc.CreditLimit)
}

func TestFindAccountByPhoneObjectResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"account_code":"ACC002","name":"Sara","balance":"25000"}`))
	})

	acc, err := client.FindAccountByPhone(context.Background(), "+96171000001")
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, "ACC002", acc.AccountCode)
	assert.Equal(t, "Sara", acc.Name)
	assert.Equal(t, 25000.0, acc.Balance)
}

func TestFindAccountByPhoneNoMatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	acc, err := client.FindAccountByPhone(context.Background(), "+96171000002")
	require.NoError(t, err)
	assert.Nil(t, acc)
}

func TestFindAccountByPhoneHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.FindAccountByPhone(context.Background(), "+96171000000")
	assert.Error(t, err)
}

func TestCreateSale(t *testing.T) {
	var got SaleRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sales", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"InvoiceNo":"INV-555"}`))
	})

	sale, err := client.CreateSale(context.Background(), SaleRequest{
		CustomerCode: "ACC001",
		Items:        []SaleItem{{ItemCode: "BK-2024-001", Quantity: 2, UnitPrice: 250000}},
		Notes:        "WhatsApp Order: ORD-20260828-ABCDEF12",
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-555", sale.InvoiceNo)

	assert.Equal(t, "ACC001", got.CustomerCode)
	// Missing invoice date defaults to today.
	assert.NotEmpty(t, got.InvoiceDate)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
}

func TestCreateSaleRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"credit limit exceeded"}`))
	})

	_, err := client.CreateSale(context.Background(), SaleRequest{CustomerCode: "ACC001"})
	assert.ErrorIs(t, err, ErrSaleRejected)
}
