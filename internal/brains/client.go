// Package brains provides typed access to the Brains ERP API, which owns the
// authoritative account and inventory records.
package brains

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmdelhajj/whatsapp-bot-complete/internal/metrics"
)

// ErrSaleRejected indicates Brains refused the invoice creation request.
var ErrSaleRejected = errors.New("brains sale rejected")

// Client provides typed access to the Brains API.
type Client struct {
	logger  *slog.Logger
	baseURL string
	apiKey  string
	http    *http.Client
	metrics *metrics.Metrics
}

// Config holds Brains client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// New creates a Brains client.
func New(cfg Config, logger *slog.Logger, m *metrics.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		logger:  logger.With("component", "brains"),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		metrics: m,
	}
}

// Account is a Brains customer account record.
type Account struct {
	AccountCode string
	Name        string
	Email       string
	Phone       string
	Balance     float64
	CreditLimit float64
	Address     string
}

// FindAccountByPhone resolves a normalized phone number to a Brains account.
// A nil account with nil error means no account matched.
func (c *Client) FindAccountByPhone(ctx context.Context, phone string) (*Account, error) {
	endpoint := "/accounts"
	query := url.Values{"phone": {phone}}

	body, err := c.do(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	// Brains returns either a bare object or a one-element array depending on
	// the endpoint version.
	var records []map[string]json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		var single map[string]json.RawMessage
		if err := json.Unmarshal(body, &single); err != nil {
			return nil, fmt.Errorf("decode account response: %w", err)
		}
		if len(single) == 0 {
			return nil, nil
		}
		records = append(records, single)
	}
	if len(records) == 0 {
		return nil, nil
	}

	raw := records[0]
	acc := &Account{
		AccountCode: readString(raw, "AccoCode", "account_code", "code"),
		Name:        readString(raw, "AccoName", "account_name", "name"),
		Email:       readString(raw, "Email", "email"),
		Phone:       readString(raw, "Phone", "phone"),
		Balance:     readFloat(raw, "Balance", "balance"),
		CreditLimit: readFloat(raw, "CreditLimit", "credit_limit"),
		Address:     readString(raw, "Address", "address"),
	}
	if acc.AccountCode == "" {
		return nil, nil
	}
	return acc, nil
}

// SaleItem is one invoice line.
type SaleItem struct {
	ItemCode  string  `json:"ItemCode"`
	Quantity  int     `json:"Quantity"`
	UnitPrice float64 `json:"UnitPrice"`
}

// SaleRequest creates an invoice on the linked account.
type SaleRequest struct {
	CustomerCode string     `json:"customer_code"`
	InvoiceDate  string     `json:"invoice_date"`
	Items        []SaleItem `json:"items"`
	Notes        string     `json:"notes"`
}

// SaleResponse carries the created invoice reference.
type SaleResponse struct {
	InvoiceNo string
}

// CreateSale posts an invoice to Brains and returns its reference.
func (c *Client) CreateSale(ctx context.Context, req SaleRequest) (*SaleResponse, error) {
	if req.InvoiceDate == "" {
		req.InvoiceDate = time.Now().Format("2006-01-02")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal sale: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/sales", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode sale response: %w", err)
	}
	invoiceNo := readString(raw, "InvoiceNo", "invoice_no")
	if invoiceNo == "" {
		return nil, fmt.Errorf("%w: missing invoice number", ErrSaleRejected)
	}
	return &SaleResponse{InvoiceNo: invoiceNo}, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	path := strings.SplitN(endpoint, "?", 2)[0]
	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		if c.metrics != nil {
			c.metrics.BrainsRequests.WithLabelValues(path, "error").Inc()
		}
		return nil, fmt.Errorf("brains request: %w", err)
	}
	defer res.Body.Close()

	statusLabel := strconv.Itoa(res.StatusCode)
	if c.metrics != nil {
		c.metrics.BrainsRequests.WithLabelValues(path, statusLabel).Inc()
		c.metrics.BrainsLatency.WithLabelValues(path, statusLabel).Observe(time.Since(start).Seconds())
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode >= 400 {
		snippet := strings.TrimSpace(string(raw))
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, fmt.Errorf("brains %s error: status=%d body=%s", path, res.StatusCode, snippet)
	}
	return raw, nil
}

func readString(raw map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		val, ok := raw[key]
		if !ok {
			continue
		}
		var str string
		if err := json.Unmarshal(val, &str); err == nil {
			if trimmed := strings.TrimSpace(str); trimmed != "" {
				return trimmed
			}
			continue
		}
		var num float64
		if err := json.Unmarshal(val, &num); err == nil && num != 0 {
			return strconv.FormatFloat(num, 'f', -1, 64)
		}
	}
	return ""
}

func readFloat(raw map[string]json.RawMessage, keys ...string) float64 {
	for _, key := range keys {
		val, ok := raw[key]
		if !ok {
			continue
		}
		var num float64
		if err := json.Unmarshal(val, &num); err == nil {
			return num
		}
		var str string
		if err := json.Unmarshal(val, &str); err == nil {
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
				return parsed
			}
		}
	}
	return 0
}
