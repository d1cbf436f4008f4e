// Package repo implements Postgres persistence for customers, messages,
// products and orders.
package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a keyed lookup matches no row.
var ErrNotFound = errors.New("not found")

// Repository provides database access over a pgx connection pool.
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Repository.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: logger.With("component", "repo"),
	}
}

// NewPool opens a pgx pool and verifies connectivity.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = time.Hour
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// FindOrCreateCustomerByPhone returns the customer for a normalized phone,
// inserting a bare record on first contact. Concurrent first messages from the
// same phone race on the insert; the unique constraint turns the loser into a
// lookup instead of a duplicate.
func (r *Repository) FindOrCreateCustomerByPhone(ctx context.Context, normalizedPhone string) (*Customer, error) {
	customer, err := r.getCustomerByPhone(ctx, normalizedPhone)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	id := uuid.NewString()
	_, err = r.pool.Exec(ctx,
		`INSERT INTO customers (id, phone, created_at) VALUES ($1, $2, now())`,
		id, normalizedPhone,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return r.getCustomerByPhone(ctx, normalizedPhone)
		}
		return nil, fmt.Errorf("insert customer: %w", err)
	}
	return r.GetCustomerByID(ctx, id)
}

// GetCustomerByID fetches one customer.
func (r *Repository) GetCustomerByID(ctx context.Context, id string) (*Customer, error) {
	return r.scanCustomer(r.pool.QueryRow(ctx, customerSelect+` WHERE id = $1`, id))
}

func (r *Repository) getCustomerByPhone(ctx context.Context, normalizedPhone string) (*Customer, error) {
	return r.scanCustomer(r.pool.QueryRow(ctx, customerSelect+` WHERE phone = $1`, normalizedPhone))
}

const customerSelect = `
	SELECT id, phone, name, email, brains_account_code, balance, credit_limit, address, created_at
	FROM customers`

func (r *Repository) scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Phone, &c.Name, &c.Email, &c.BrainsAccountCode,
		&c.Balance, &c.CreditLimit, &c.Address, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan customer: %w", err)
	}
	return &c, nil
}

// LinkBrainsAccount copies the Brains account fields onto the customer.
func (r *Repository) LinkBrainsAccount(ctx context.Context, customerID string, link AccountLink) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE customers
		SET brains_account_code = $2, name = $3, email = $4,
		    balance = $5, credit_limit = $6, address = $7
		WHERE id = $1`,
		customerID, nullable(link.AccountCode), nullable(link.Name), nullable(link.Email),
		link.Balance, link.CreditLimit, nullable(link.Address),
	)
	if err != nil {
		return fmt.Errorf("link brains account: %w", err)
	}
	return nil
}

// InsertMessage appends one conversation utterance.
func (r *Repository) InsertMessage(ctx context.Context, msg Message) error {
	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (id, customer_id, direction, text, intent, created_at)
		VALUES ($1, $2, $3, $4, $5, now())`,
		id, msg.CustomerID, msg.Direction, msg.Text, msg.Intent,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit messages for a customer, oldest first.
func (r *Repository) RecentMessages(ctx context.Context, customerID string, limit int) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, customer_id, direction, text, intent, created_at
		FROM messages WHERE customer_id = $1
		ORDER BY created_at DESC LIMIT $2`,
		customerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.CustomerID, &m.Direction, &m.Text, &m.Intent, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Query walks backwards from the newest row; flip to conversation order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// SearchProducts matches name or code by case-insensitive substring.
func (r *Repository) SearchProducts(ctx context.Context, query string, limit int) ([]Product, error) {
	pattern := "%" + strings.TrimSpace(query) + "%"
	rows, err := r.pool.Query(ctx, `
		SELECT code, name, price, stock_quantity
		FROM products
		WHERE name ILIKE $1 OR code ILIKE $1
		ORDER BY name LIMIT $2`,
		pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.Code, &p.Name, &p.Price, &p.StockQuantity); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetProductByCode fetches one product by its exact Brains item code.
func (r *Repository) GetProductByCode(ctx context.Context, code string) (*Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, `
		SELECT code, name, price, stock_quantity
		FROM products WHERE upper(code) = upper($1)`,
		code,
	).Scan(&p.Code, &p.Name, &p.Price, &p.StockQuantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// CreateOrder persists an order and its line items in one transaction.
func (r *Repository) CreateOrder(ctx context.Context, order Order) (*Order, error) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.OrderNumber == "" {
		order.OrderNumber = generateOrderNumber()
	}
	if order.Status == "" {
		order.Status = "PENDING"
	}
	order.CreatedAt = time.Now().UTC()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, customer_id, order_number, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		order.ID, order.CustomerID, order.OrderNumber, order.Status, order.Notes, order.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	for _, item := range order.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_code, product_name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.NewString(), order.ID, item.ProductCode, item.ProductName, item.Quantity, item.UnitPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}
	return &order, nil
}

// SetOrderInvoice records the Brains invoice reference. Only an unset
// reference is written; a second attempt is a no-op.
func (r *Repository) SetOrderInvoice(ctx context.Context, orderID, invoiceNo string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE orders SET brains_invoice_no = $2
		WHERE id = $1 AND brains_invoice_no IS NULL`,
		orderID, invoiceNo,
	)
	if err != nil {
		return fmt.Errorf("set order invoice: %w", err)
	}
	return nil
}

func generateOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}

func nullable(val string) *string {
	if strings.TrimSpace(val) == "" {
		return nil
	}
	return &val
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
