package ai

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
		APIURL:    server.URL,
		APIKey:    "test-key",
		Model:     "claude-sonnet-4-20250514",
		MaxTokens: 512,
		Timeout:   2 * time.Second,
		Store:     StoreProfile{Name: "Librarie Memoires", Location: "Tripoli, Lebanon", Currency: "LBP"},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics.NewNop())
}

func TestReplySuccess(t *testing.T) {
	var gotReq messagesRequest
	var gotVersion, gotKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotVersion = r.Header.Get("anthropic-version")
		gotKey = r.Header.Get("x-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": "عندنا كتاب الرياضيات بسعر 250,000 LBP 📚"}},
		})
	})

	result, err := client.Reply(context.Background(),
		CustomerFacts{Name: "Ali Hassan", Balance: -150000, CreditLimit: 1000000, Linked: true},
		[]Turn{{Role: RoleUser, Content: "عندكم كتب رياضيات؟"}},
	)

	require.NoError(t, err)
	assert.Contains(t, result.Text, "كتاب الرياضيات")
	assert.Equal(t, "product_search", result.Intent)

	assert.Equal(t, "2023-06-01", gotVersion)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "claude-sonnet-4-20250514", gotReq.Model)
	assert.Equal(t, 512, gotReq.MaxTokens)
	assert.Contains(t, gotReq.System, "Librarie Memoires")
	assert.Contains(t, gotReq.System, "Ali Hassan")
	assert.Contains(t, gotReq.System, "-150,000 LBP")
	require.Len(t, gotReq.Messages, 1)
}

func TestReplyHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"overloaded_error"}}`, http.StatusServiceUnavailable)
	})

	_, err := client.Reply(context.Background(), CustomerFacts{}, []Turn{{Role: RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestReplyMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})

	_, err := client.Reply(context.Background(), CustomerFacts{}, []Turn{{Role: RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestReplyEmptyContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	})

	_, err := client.Reply(context.Background(), CustomerFacts{}, []Turn{{Role: RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestReplyTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	})
	client.http.Timeout = 10 * time.Millisecond

	_, err := client.Reply(context.Background(), CustomerFacts{}, []Turn{{Role: RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLabelReply(t *testing.T) {
	assert.Equal(t, "product_search", labelReply("وجدت لك كتاب الفيزياء"))
	assert.Equal(t, "order", labelReply("تم تسجيل طلبك"))
	assert.Equal(t, "balance_inquiry", labelReply("رصيدك الحالي هو 100,000"))
	assert.Equal(t, "greeting", labelReply("مرحبا! كيف أساعدك"))
	assert.Equal(t, "general", labelReply("نفتح يومياً حتى الساعة السادسة"))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0", FormatAmount(0))
	assert.Equal(t, "250", FormatAmount(250))
	assert.Equal(t, "1,000", FormatAmount(1000))
	assert.Equal(t, "1,250,000", FormatAmount(1250000))
	assert.Equal(t, "-150,000", FormatAmount(-150000))
}
