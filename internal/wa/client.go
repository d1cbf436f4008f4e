// Package wa sends outbound WhatsApp messages through the ProxSMS HTTP
// gateway. Delivery succeeds only when the gateway body reports
// status "success"; an HTTP 200 alone is not enough.
package wa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmdelhajj/whatsapp-bot-complete/internal/metrics"
	"github.com/mmdelhajj/whatsapp-bot-complete/internal/phone"
)

// Message kinds accepted by the gateway.
const (
	KindText     = "text"
	KindImage    = "image"
	KindDocument = "document"
	KindLocation = "location"
)

// ErrSendFailed indicates the gateway accepted the request but did not report
// a successful delivery.
var ErrSendFailed = errors.New("gateway send failed")

// Client talks to the ProxSMS send API.
type Client struct {
	logger        *slog.Logger
	apiURL        string
	accountID     string
	secret        string
	countryPrefix string
	http          *http.Client
	metrics       *metrics.Metrics
}

// Config holds gateway client configuration.
type Config struct {
	APIURL        string
	AccountID     string
	Secret        string
	CountryPrefix string
	Timeout       time.Duration
}

// New creates a gateway client.
func New(cfg Config, logger *slog.Logger, m *metrics.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		logger:        logger.With("component", "wa"),
		apiURL:        cfg.APIURL,
		accountID:     cfg.AccountID,
		secret:        cfg.Secret,
		countryPrefix: cfg.CountryPrefix,
		http:          &http.Client{Timeout: timeout},
		metrics:       m,
	}
}

type sendRequest struct {
	Secret    string  `json:"secret"`
	Account   string  `json:"account"`
	Recipient string  `json:"recipient"`
	Type      string  `json:"type"`
	Message   string  `json:"message,omitempty"`
	Caption   string  `json:"caption,omitempty"`
	Filename  string  `json:"filename,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Name      string  `json:"name,omitempty"`
}

type sendResponse struct {
	Status  string          `json:"status"`
	Message json.RawMessage `json:"message"`
}

// SendText delivers a plain text message.
func (c *Client) SendText(ctx context.Context, recipient, text string) error {
	return c.send(ctx, sendRequest{
		Recipient: recipient,
		Type:      KindText,
		Message:   text,
	})
}

// SendImage delivers an image by URL with an optional caption.
func (c *Client) SendImage(ctx context.Context, recipient, imageURL, caption string) error {
	return c.send(ctx, sendRequest{
		Recipient: recipient,
		Type:      KindImage,
		Message:   imageURL,
		Caption:   caption,
	})
}

// SendDocument delivers a document by URL with an optional filename.
func (c *Client) SendDocument(ctx context.Context, recipient, documentURL, filename string) error {
	return c.send(ctx, sendRequest{
		Recipient: recipient,
		Type:      KindDocument,
		Message:   documentURL,
		Filename:  filename,
	})
}

// SendLocation delivers a map pin.
func (c *Client) SendLocation(ctx context.Context, recipient string, latitude, longitude float64, name string) error {
	return c.send(ctx, sendRequest{
		Recipient: recipient,
		Type:      KindLocation,
		Latitude:  latitude,
		Longitude: longitude,
		Name:      name,
	})
}

func (c *Client) send(ctx context.Context, req sendRequest) error {
	req.Secret = c.secret
	req.Account = c.accountID
	req.Recipient = phone.Normalize(req.Recipient, c.countryPrefix)

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := c.http.Do(httpReq)
	if err != nil {
		c.observe(req.Type, "error", start)
		return fmt.Errorf("gateway request: %w", err)
	}
	defer res.Body.Close()

	c.observe(req.Type, strconv.Itoa(res.StatusCode), start)

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: http %d", ErrSendFailed, res.StatusCode)
	}

	var decoded sendResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return fmt.Errorf("%w: invalid response body", ErrSendFailed)
	}
	if !strings.EqualFold(decoded.Status, "success") {
		return fmt.Errorf("%w: status=%q", ErrSendFailed, decoded.Status)
	}
	return nil
}

func (c *Client) observe(kind, status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.GatewayRequests.WithLabelValues(kind, status).Inc()
	c.metrics.GatewayLatency.WithLabelValues(kind, status).Observe(time.Since(start).Seconds())
}
