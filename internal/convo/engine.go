// Package convo routes inbound customer messages to intent handlers and
// orchestrates the resulting business actions and replies.
package convo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmdelhajj/whatsapp-bot-complete/internal/ai"
	"github.com/mmdelhajj/whatsapp-bot-complete/internal/brains"
	"github.com/mmdelhajj/whatsapp-bot-complete/internal/cache"
	"github.com/mmdelhajj/whatsapp-bot-complete/internal/metrics"
	"github.com/mmdelhajj/whatsapp-bot-complete/internal/phone"
	"github.com/mmdelhajj/whatsapp-bot-complete/internal/repo"
)

const (
	searchResultLimit = 5
	searchCacheTTL    = 10 * time.Minute

	aiRateLimit  = 20
	aiRateWindow = time.Hour
)

// Store is the persistence surface the engine needs.
type Store interface {
	FindOrCreateCustomerByPhone(ctx context.Context, normalizedPhone string) (*repo.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*repo.Customer, error)
	LinkBrainsAccount(ctx context.Context, customerID string, link repo.AccountLink) error
	InsertMessage(ctx context.Context, msg repo.Message) error
	RecentMessages(ctx context.Context, customerID string, limit int) ([]repo.Message, error)
	SearchProducts(ctx context.Context, query string, limit int) ([]repo.Product, error)
	GetProductByCode(ctx context.Context, code string) (*repo.Product, error)
	CreateOrder(ctx context.Context, order repo.Order) (*repo.Order, error)
	SetOrderInvoice(ctx context.Context, orderID, invoiceNo string) error
}

// Gateway sends outbound messages to the customer channel.
type Gateway interface {
	SendText(ctx context.Context, recipient, text string) error
	SendLocation(ctx context.Context, recipient string, latitude, longitude float64, name string) error
}

// Completer generates a free-form reply from conversation context.
type Completer interface {
	Reply(ctx context.Context, facts ai.CustomerFacts, turns []ai.Turn) (*ai.Result, error)
}

// Accounts is the external accounting system used for linking and invoicing.
type Accounts interface {
	FindAccountByPhone(ctx context.Context, phone string) (*brains.Account, error)
	CreateSale(ctx context.Context, req brains.SaleRequest) (*brains.SaleResponse, error)
}

// Config carries store identity and locale facts used in replies.
type Config struct {
	StoreName      string
	StoreLocation  string
	StoreLatitude  float64
	StoreLongitude float64
	Currency       string
	CountryPrefix  string
	ContextWindow  int
}

// Result is what the engine reports back for one inbound message. Err carries
// the internal cause for logging; it is never echoed to the customer.
type Result struct {
	Success    bool
	CustomerID string
	Intent     Intent
	Err        error
}

// Engine is the conversation orchestrator.
type Engine struct {
	store    Store
	gateway  Gateway
	ai       Completer
	accounts Accounts
	cache    *cache.Redis
	metrics  *metrics.Metrics
	cfg      Config
	logger   *slog.Logger
}

// New creates a conversation engine. The cache may be nil, in which case
// search caching and AI rate limiting are disabled.
func New(store Store, gateway Gateway, completer Completer, accounts Accounts, redis *cache.Redis, m *metrics.Metrics, cfg Config, logger *slog.Logger) *Engine {
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = 5
	}
	if cfg.CountryPrefix == "" {
		cfg.CountryPrefix = phone.DefaultCountryPrefix
	}
	return &Engine{
		store:    store,
		gateway:  gateway,
		ai:       completer,
		accounts: accounts,
		cache:    redis,
		metrics:  m,
		cfg:      cfg,
		logger:   logger.With("component", "convo"),
	}
}

// ProcessIncomingMessage runs the full pipeline for one inbound message:
// resolve the customer, persist the message, attempt account linking, route
// by intent, send at most one reply and persist it.
func (e *Engine) ProcessIncomingMessage(ctx context.Context, rawPhone, text string) Result {
	normalized := phone.Normalize(rawPhone, e.cfg.CountryPrefix)
	text = strings.TrimSpace(text)

	customer, err := e.store.FindOrCreateCustomerByPhone(ctx, normalized)
	if err != nil {
		e.countError("customer")
		e.logger.Error("failed resolving customer", "phone", normalized, "error", err)
		return Result{Err: fmt.Errorf("resolve customer: %w", err)}
	}

	intent := Classify(text)
	e.logger.Info("message received", "customer_id", customer.ID, "intent", intent)
	if e.metrics != nil {
		e.metrics.MessagesReceived.WithLabelValues(intent.String()).Inc()
	}

	if err := e.store.InsertMessage(ctx, repo.Message{
		CustomerID: customer.ID,
		Direction:  repo.DirectionReceived,
		Text:       text,
		Intent:     intent.String(),
	}); err != nil {
		e.countError("persist")
		e.logger.Error("failed persisting inbound message", "customer_id", customer.ID, "error", err)
		return Result{CustomerID: customer.ID, Intent: intent, Err: fmt.Errorf("persist message: %w", err)}
	}

	if !customer.Linked() {
		customer = e.tryLinkAccount(ctx, customer)
	}

	reply, err := e.handle(ctx, customer, intent, text)
	if err != nil {
		e.countError("handler")
		e.logger.Error("handler failed", "customer_id", customer.ID, "intent", intent, "error", err)
		e.sendReply(ctx, customer, IntentAIQuery, msgAIFallback)
		return Result{CustomerID: customer.ID, Intent: intent, Err: err}
	}

	// Empty reply means the handler already sent everything it needed to,
	// or deliberately stayed silent.
	if reply != "" {
		if err := e.sendReply(ctx, customer, intent, reply); err != nil {
			return Result{CustomerID: customer.ID, Intent: intent, Err: err}
		}
	}

	// Help replies point the customer at the store; the extra pin is
	// best-effort and never fails the request.
	if intent == IntentHelp && e.cfg.StoreLatitude != 0 {
		if err := e.gateway.SendLocation(ctx, customer.Phone, e.cfg.StoreLatitude, e.cfg.StoreLongitude, e.cfg.StoreName); err != nil {
			e.logger.Warn("failed sending store location", "customer_id", customer.ID, "error", err)
		}
	}

	return Result{Success: true, CustomerID: customer.ID, Intent: intent}
}

func (e *Engine) handle(ctx context.Context, customer *repo.Customer, intent Intent, text string) (string, error) {
	switch intent {
	case IntentProductSearch:
		return e.handleProductSearch(ctx, text)
	case IntentBalanceInquiry:
		return e.handleBalanceInquiry(customer), nil
	case IntentOrder:
		return e.handleOrder(ctx, customer, text)
	case IntentHelp:
		return helpMessage(e.cfg.StoreLocation), nil
	case IntentGreeting:
		return welcomeMessage(e.cfg.StoreName, customerName(customer)), nil
	default:
		return e.handleAIQuery(ctx, customer, text), nil
	}
}

func (e *Engine) handleProductSearch(ctx context.Context, text string) (string, error) {
	query := ExtractSearchQuery(text)
	if query == "" {
		return msgSearchPrompt, nil
	}

	products, err := e.searchProducts(ctx, query)
	if err != nil {
		return "", fmt.Errorf("search products: %w", err)
	}
	if len(products) == 0 {
		return noResultsMessage(query), nil
	}
	return searchResultsMessage(products, e.cfg.Currency), nil
}

// searchProducts serves repeat queries from the cache. Cache failures degrade
// to a direct lookup.
func (e *Engine) searchProducts(ctx context.Context, query string) ([]repo.Product, error) {
	key := "search:" + strings.ToLower(query)
	if e.cache != nil {
		var cached []repo.Product
		hit, err := e.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			e.logger.Warn("search cache read failed", "error", err)
		} else if hit {
			return cached, nil
		}
	}

	products, err := e.store.SearchProducts(ctx, query, searchResultLimit)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		if err := e.cache.SetJSON(ctx, key, products, searchCacheTTL); err != nil {
			e.logger.Warn("search cache write failed", "error", err)
		}
	}
	return products, nil
}

func (e *Engine) handleBalanceInquiry(customer *repo.Customer) string {
	if !customer.Linked() {
		return msgBalanceNotLinked
	}
	return balanceMessage(customer, e.cfg.Currency)
}

// handleOrder walks the rejection ladder, persists the order, attempts the
// external invoice and sends its own confirmation. An empty reply with nil
// error means the confirmation already went out.
func (e *Engine) handleOrder(ctx context.Context, customer *repo.Customer, text string) (string, error) {
	code := ExtractProductCode(text)
	if code == "" {
		return msgOrderPrompt, nil
	}

	product, err := e.store.GetProductByCode(ctx, code)
	if errors.Is(err, repo.ErrNotFound) {
		return msgProductNotFound, nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup product %s: %w", code, err)
	}
	if product.StockQuantity <= 0 {
		return outOfStockMessage(product.Name), nil
	}

	quantity := ExtractQuantity(text)
	order, err := e.store.CreateOrder(ctx, repo.Order{
		CustomerID: customer.ID,
		Notes:      "Created via WhatsApp",
		Items: []repo.OrderItem{{
			ProductCode: product.Code,
			ProductName: product.Name,
			Quantity:    quantity,
			UnitPrice:   product.Price,
		}},
	})
	if err != nil {
		e.countError("order")
		e.logger.Error("order creation failed", "customer_id", customer.ID, "error", err)
		return msgOrderFailed, nil
	}

	e.logger.Info("order created", "customer_id", customer.ID, "order_number", order.OrderNumber)
	if e.metrics != nil {
		e.metrics.OrdersCreated.Inc()
	}

	e.tryCreateInvoice(ctx, customer, order)

	if err := e.sendReply(ctx, customer, IntentOrder, orderConfirmationMessage(order, e.cfg.Currency)); err != nil {
		return "", err
	}
	return "", nil
}

func (e *Engine) handleAIQuery(ctx context.Context, customer *repo.Customer, text string) string {
	if !e.allowAICall(ctx, customer.ID) {
		return msgAIFallback
	}

	history, err := e.store.RecentMessages(ctx, customer.ID, e.cfg.ContextWindow)
	if err != nil {
		e.logger.Warn("failed loading conversation history", "customer_id", customer.ID, "error", err)
		history = nil
	}

	result, err := e.ai.Reply(ctx, customerFacts(customer), buildTurns(history, text))
	if err != nil {
		e.countError("ai")
		e.logger.Error("completion failed", "customer_id", customer.ID, "error", err)
		return msgAIFallback
	}

	e.logger.Info("ai reply generated", "customer_id", customer.ID, "secondary_intent", result.Intent)
	if e.metrics != nil {
		e.metrics.IntentDetected.WithLabelValues(result.Intent).Inc()
	}
	return result.Text
}

func (e *Engine) allowAICall(ctx context.Context, customerID string) bool {
	if e.cache == nil {
		return true
	}
	ok, err := e.cache.Allow(ctx, "ai_rate:"+customerID, aiRateLimit, aiRateWindow)
	if err != nil {
		e.logger.Warn("rate limiter unavailable", "error", err)
		return true
	}
	if !ok {
		e.logger.Warn("ai rate limit exceeded", "customer_id", customerID)
	}
	return ok
}

// tryLinkAccount matches the customer's phone against the accounting system
// and copies the account fields onto the customer. Any failure is logged and
// swallowed; the conversation continues with the unlinked record.
func (e *Engine) tryLinkAccount(ctx context.Context, customer *repo.Customer) *repo.Customer {
	account, err := e.accounts.FindAccountByPhone(ctx, customer.Phone)
	if err != nil {
		e.logger.Warn("account lookup failed", "customer_id", customer.ID, "error", err)
		return customer
	}
	if account == nil {
		return customer
	}

	err = e.store.LinkBrainsAccount(ctx, customer.ID, repo.AccountLink{
		AccountCode: account.AccountCode,
		Name:        account.Name,
		Email:       account.Email,
		Balance:     account.Balance,
		CreditLimit: account.CreditLimit,
		Address:     account.Address,
	})
	if err != nil {
		e.logger.Warn("account linking failed", "customer_id", customer.ID, "error", err)
		return customer
	}

	e.logger.Info("customer linked to account", "customer_id", customer.ID, "account_code", account.AccountCode)
	linked, err := e.store.GetCustomerByID(ctx, customer.ID)
	if err != nil {
		e.logger.Warn("failed re-reading linked customer", "customer_id", customer.ID, "error", err)
		return customer
	}
	return linked
}

// tryCreateInvoice mirrors the local order into the accounting system. Only
// linked customers get invoices and failure never affects the local order.
func (e *Engine) tryCreateInvoice(ctx context.Context, customer *repo.Customer, order *repo.Order) {
	if !customer.Linked() {
		return
	}

	items := make([]brains.SaleItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, brains.SaleItem{
			ItemCode:  item.ProductCode,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	sale, err := e.accounts.CreateSale(ctx, brains.SaleRequest{
		CustomerCode: *customer.BrainsAccountCode,
		InvoiceDate:  time.Now().Format("2006-01-02"),
		Items:        items,
		Notes:        "WhatsApp Order: " + order.OrderNumber,
	})
	if err != nil {
		e.logger.Error("invoice creation failed", "order_number", order.OrderNumber, "error", err)
		return
	}

	if err := e.store.SetOrderInvoice(ctx, order.ID, sale.InvoiceNo); err != nil {
		e.logger.Error("failed recording invoice number", "order_id", order.ID, "error", err)
		return
	}
	e.logger.Info("invoice created", "order_number", order.OrderNumber, "invoice_no", sale.InvoiceNo)
}

// sendReply dispatches the outbound text and persists it as a SENT message.
func (e *Engine) sendReply(ctx context.Context, customer *repo.Customer, intent Intent, text string) error {
	if err := e.gateway.SendText(ctx, customer.Phone, text); err != nil {
		e.countError("send")
		e.logger.Error("failed sending reply", "customer_id", customer.ID, "error", err)
		return fmt.Errorf("send reply: %w", err)
	}
	if e.metrics != nil {
		e.metrics.MessagesSent.WithLabelValues(intent.String()).Inc()
	}

	if err := e.store.InsertMessage(ctx, repo.Message{
		CustomerID: customer.ID,
		Direction:  repo.DirectionSent,
		Text:       text,
		Intent:     intent.String(),
	}); err != nil {
		// The customer already has the reply; losing the history row is
		// not worth failing the request over.
		e.logger.Warn("failed persisting outbound message", "customer_id", customer.ID, "error", err)
	}
	return nil
}

func (e *Engine) countError(stage string) {
	if e.metrics != nil {
		e.metrics.Errors.WithLabelValues(stage).Inc()
	}
}

func customerName(c *repo.Customer) string {
	if c.Name != nil {
		return strings.TrimSpace(*c.Name)
	}
	return ""
}

func customerFacts(c *repo.Customer) ai.CustomerFacts {
	return ai.CustomerFacts{
		Name:        customerName(c),
		Balance:     c.Balance,
		CreditLimit: c.CreditLimit,
		Linked:      c.Linked(),
	}
}
