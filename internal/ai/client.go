// Package ai generates free-form replies through the Anthropic Messages API
// when no deterministic intent rule matches.
package ai

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
)

// ErrUnavailable covers every transport-level completion failure: timeouts,
// non-200 statuses, malformed bodies and empty responses. Callers substitute
// a fixed fallback phrase and never retry within the request.
var ErrUnavailable = errors.New("completion service unavailable")

// Turn is one role-tagged utterance in the conversation context.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation roles accepted by the completion service.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// StoreProfile carries the store facts embedded in every system prompt.
type StoreProfile struct {
	Name     string
	Location string
	Currency string
}

// CustomerFacts is the optional customer context for the system prompt.
type CustomerFacts struct {
	Name        string
	Balance     float64
	CreditLimit float64
	Linked      bool
}

// Result is a successful completion with a coarse intent label derived from
// the reply text, recorded for analytics only.
type Result struct {
	Text   string
	Intent string
}

// Client calls the Anthropic Messages API.
type Client struct {
	logger    *slog.Logger
	apiURL    string
	apiKey    string
	model     string
	maxTokens int
	store     StoreProfile
	http      *http.Client
	metrics   *metrics.Metrics
}

// Config holds completion client configuration.
type Config struct {
	APIURL    string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	Store     StoreProfile
}

// New creates a completion client.
func New(cfg Config, logger *slog.Logger, m *metrics.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Client{
		logger:    logger.With("component", "ai"),
		apiURL:    cfg.APIURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: maxTokens,
		store:     cfg.Store,
		http:      &http.Client{Timeout: timeout},
		metrics:   m,
	}
}

type messagesRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	System    string `json:"system,omitempty"`
	Messages  []Turn `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Reply sends the conversation turns with a customer-aware system prompt and
// returns the generated text plus its derived intent label.
func (c *Client) Reply(ctx context.Context, facts CustomerFacts, turns []Turn) (*Result, error) {
	payload, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    c.buildSystemPrompt(facts),
		Messages:  turns,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.observe("error", start)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		c.observe("error", start)
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	if res.StatusCode != http.StatusOK {
		c.observe(strconv.Itoa(res.StatusCode), start)
		c.logger.Error("completion request failed", "status", res.StatusCode, "body", truncate(string(body), 200))
		return nil, fmt.Errorf("%w: http %d", ErrUnavailable, res.StatusCode)
	}

	var decoded messagesResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		c.observe("malformed", start)
		return nil, fmt.Errorf("%w: invalid json", ErrUnavailable)
	}
	text := ""
	for _, block := range decoded.Content {
		if block.Type == "" || block.Type == "text" {
			text = strings.TrimSpace(block.Text)
			break
		}
	}
	if text == "" {
		c.observe("empty", start)
		return nil, fmt.Errorf("%w: no text content", ErrUnavailable)
	}

	c.observe("success", start)
	return &Result{Text: text, Intent: labelReply(text)}, nil
}

func (c *Client) observe(status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.ClaudeRequests.WithLabelValues(status).Inc()
	c.metrics.ClaudeLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())
}

func (c *Client) buildSystemPrompt(facts CustomerFacts) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a helpful AI assistant for **%s**, a bookstore in %s.\n\n", c.store.Name, c.store.Location)

	sb.WriteString("**Your Role:**\n")
	sb.WriteString("- Help customers find books and educational materials\n")
	sb.WriteString("- Provide product information, prices, and availability\n")
	sb.WriteString("- Assist with placing orders\n")
	sb.WriteString("- Check account balances and credit limits\n")
	sb.WriteString("- Answer questions in a friendly, professional manner\n\n")

	sb.WriteString("**Important Guidelines:**\n")
	sb.WriteString("- Respond in the customer's language (Arabic, English, or French)\n")
	sb.WriteString("- Be concise and clear (max 2-3 sentences unless asked for details)\n")
	sb.WriteString("- Use emojis to make messages friendly 😊\n")
	fmt.Fprintf(&sb, "- For prices, use format: XX,XXX %s\n", c.store.Currency)
	sb.WriteString("- If you don't know something, be honest and offer to check\n")
	sb.WriteString("- If product search is needed, ask for specific product names or codes\n\n")

	if facts.Name != "" {
		sb.WriteString("**Customer Information:**\n")
		fmt.Fprintf(&sb, "- Name: %s\n", facts.Name)
		if facts.Linked {
			fmt.Fprintf(&sb, "- Account Balance: %s %s\n", FormatAmount(facts.Balance), c.store.Currency)
			fmt.Fprintf(&sb, "- Credit Limit: %s %s\n", FormatAmount(facts.CreditLimit), c.store.Currency)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("**Common Scenarios:**\n")
	sb.WriteString("1. Product Search: When customer asks about a book, guide them to provide specific names or codes\n")
	sb.WriteString("2. Ordering: Confirm product details before creating order\n")
	sb.WriteString("3. Account Inquiry: Provide balance and credit info clearly\n")
	sb.WriteString("4. General Questions: Answer helpfully about store, location, hours, etc.\n\n")

	sb.WriteString("Be warm, helpful, and efficient! 🌟")
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// labelReply tags the generated reply with a coarse intent for telemetry.
// Kept separate from the inbound classifier on purpose: it runs over bot
// output, not customer text.
func labelReply(text string) string {
	lower := strings.ToLower(text)
	groups := []struct {
		label string
		terms []string
	}{
		{"product_search", []string{"بحث", "كتاب", "search", "book", "find", "product"}},
		{"order", []string{"طلب", "order", "buy", "purchase", "اطلب", "بدي"}},
		{"balance_inquiry", []string{"رصيد", "balance", "حساب", "account", "credit"}},
		{"greeting", []string{"مرحبا", "hello", "hi", "السلام", "صباح", "مساء"}},
		{"help", []string{"مساعدة", "help", "ساعد"}},
	}
	for _, g := range groups {
		for _, term := range g.terms {
			if strings.Contains(lower, term) {
				return g.label
			}
		}
	}
	return "general"
}

// FormatAmount renders a money value with thousands separators, no decimals.
func FormatAmount(value float64) string {
	neg := value < 0
	if neg {
		value = -value
	}
	digits := strconv.FormatFloat(value, 'f', 0, 64)
	var sb strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(d)
	}
	if neg {
		return "-" + sb.String()
	}
	return sb.String()
}
