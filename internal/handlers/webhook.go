// Package handlers exposes the HTTP ingress for gateway callbacks.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mmdelhajj/whatsapp-bot-complete/internal/convo"
)

// Processor runs the conversation pipeline for one inbound message.
type Processor interface {
	ProcessIncomingMessage(ctx context.Context, phone, text string) convo.Result
}

// Webhook receives inbound message callbacks from the ProxSMS gateway.
type Webhook struct {
	engine Processor
	secret string
	logger *slog.Logger
}

// NewWebhook constructs the webhook handler. An empty secret disables
// verification.
func NewWebhook(engine Processor, secret string, logger *slog.Logger) *Webhook {
	return &Webhook{
		engine: engine,
		secret: secret,
		logger: logger.With("component", "webhook"),
	}
}

// inboundPayload tolerates both field spellings the gateway has used.
type inboundPayload struct {
	Phone   string `json:"phone"`
	From    string `json:"from"`
	Message string `json:"message"`
	Text    string `json:"text"`
	Type    string `json:"type"`
	Secret  string `json:"secret"`
}

func (p inboundPayload) phone() string {
	if p.Phone != "" {
		return p.Phone
	}
	return p.From
}

func (p inboundPayload) text() string {
	if p.Message != "" {
		return p.Message
	}
	return p.Text
}

func (h *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var payload inboundPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Error("invalid webhook body", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if h.secret != "" {
		provided := r.Header.Get("X-Webhook-Secret")
		if provided == "" {
			provided = payload.Secret
		}
		if provided != h.secret {
			h.logger.Warn("webhook secret mismatch", "remote", r.RemoteAddr)
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
			return
		}
	}

	phone, text := payload.phone(), payload.text()
	if phone == "" || text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing required fields"})
		return
	}

	// Media callbacks carry no processable text yet.
	if payload.Type != "" && payload.Type != "text" {
		h.logger.Info("ignoring non-text message", "type", payload.Type)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": "non-text message"})
		return
	}

	result := h.engine.ProcessIncomingMessage(r.Context(), phone, text)
	if !result.Success {
		h.logger.Error("message processing failed", "customer_id", result.CustomerID, "error", result.Err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "error",
			"error":  "processing failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "success",
		"customer_id": result.CustomerID,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
