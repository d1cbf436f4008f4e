package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmdelhajj/whatsapp-bot-complete/internal/convo"
)

type fakeProcessor struct {
	result convo.Result
	calls  int
	phone  string
	text   string
}

func (p *fakeProcessor) ProcessIncomingMessage(_ context.Context, phone, text string) convo.Result {
	p.calls++
	p.phone = phone
	p.text = text
	return p.result
}

func post(t *testing.T, h http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhookSuccess(t *testing.T) {
	processor := &fakeProcessor{result: convo.Result{Success: true, CustomerID: "cust-1"}}
	h := NewWebhook(processor, "", slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := post(t, h, `{"phone":"+96171000000","message":"مرحبا"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","customer_id":"cust-1"}`, rec.Body.String())
	assert.Equal(t, 1, processor.calls)
	assert.Equal(t, "+96171000000", processor.phone)
	assert.Equal(t, "مرحبا", processor.text)
}

func TestWebhookAlternateFieldNames(t *testing.T) {
	processor := &fakeProcessor{result: convo.Result{Success: true, CustomerID: "cust-1"}}
	h := NewWebhook(processor, "", slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := post(t, h, `{"from":"+96171000000","text":"hello"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "+96171000000", processor.phone)
	assert.Equal(t, "hello", processor.text)
}

func TestWebhookMalformedJSON(t *testing.T) {
	processor := &fakeProcessor{}
	h := NewWebhook(processor, "", slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := post(t, h, `{"phone":`, nil)

	// Malformed input is rejected before any processing happens.
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, processor.calls)
}

func TestWebhookMissingFields(t *testing.T) {
	processor := &fakeProcessor{}
	h := NewWebhook(processor, "", slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := post(t, h, `{"phone":"+96171000000"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, processor.calls)
}

func TestWebhookSecret(t *testing.T) {
	processor := &fakeProcessor{result: convo.Result{Success: true, CustomerID: "cust-1"}}
	h := NewWebhook(processor, "hook-secret", slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := post(t, h, `{"phone":"+96171000000","message":"hi"}`, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, processor.calls)

	rec = post(t, h, `{"phone":"+96171000000","message":"hi"}`, map[string]string{"X-Webhook-Secret": "hook-secret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// The secret may also arrive inside the payload.
	rec = post(t, h, `{"phone":"+96171000000","message":"hi","secret":"hook-secret"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookIgnoresNonText(t *testing.T) {
	processor := &fakeProcessor{}
	h := NewWebhook(processor, "", slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := post(t, h, `{"phone":"+96171000000","message":"http://x/img.jpg","type":"image"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ignored","reason":"non-text message"}`, rec.Body.String())
	assert.Equal(t, 0, processor.calls)
}

func TestWebhookProcessingFailure(t *testing.T) {
	processor := &fakeProcessor{result: convo.Result{CustomerID: "cust-1", Err: errors.New("db down")}}
	h := NewWebhook(processor, "", slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := post(t, h, `{"phone":"+96171000000","message":"hi"}`, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	// Internal error text is never echoed to the caller.
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	h := NewWebhook(&fakeProcessor{}, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	req := httptest.NewRequest(http.MethodGet, "/webhook/whatsapp", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
