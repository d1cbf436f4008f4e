package repo

import "time"

// Message directions. Conversation history ordering is by CreatedAt.
const (
	DirectionReceived = "RECEIVED"
	DirectionSent     = "SENT"
)

// Customer is keyed by normalized phone number, unique per phone.
type Customer struct {
	ID                string
	Phone             string
	Name              *string
	Email             *string
	BrainsAccountCode *string
	Balance           float64
	CreditLimit       float64
	Address           *string
	CreatedAt         time.Time
}

// Linked reports whether the customer is tied to a Brains account.
func (c *Customer) Linked() bool {
	return c.BrainsAccountCode != nil && *c.BrainsAccountCode != ""
}

// DisplayName returns the linked account name, empty when unlinked.
func (c *Customer) DisplayName() string {
	if c.Name == nil {
		return ""
	}
	return *c.Name
}

// AccountLink carries the Brains account fields copied onto a customer.
type AccountLink struct {
	AccountCode string
	Name        string
	Email       string
	Balance     float64
	CreditLimit float64
	Address     string
}

// Message is one conversation utterance, immutable once stored.
type Message struct {
	ID         string
	CustomerID string
	Direction  string
	Text       string
	Intent     string
	CreatedAt  time.Time
}

// Product mirrors the synced Brains catalog. Read-only for the bot.
type Product struct {
	Code          string
	Name          string
	Price         float64
	StockQuantity int
}

// OrderItem captures the unit price at order time.
type OrderItem struct {
	ProductCode string
	ProductName string
	Quantity    int
	UnitPrice   float64
}

// Order is immutable after creation except for the Brains invoice reference,
// which transitions from empty to set at most once.
type Order struct {
	ID              string
	CustomerID      string
	OrderNumber     string
	Status          string
	Items           []OrderItem
	Notes           string
	BrainsInvoiceNo *string
	CreatedAt       time.Time
}

// Total sums quantity times unit price across line items.
func (o *Order) Total() float64 {
	var total float64
	for _, item := range o.Items {
		total += float64(item.Quantity) * item.UnitPrice
	}
	return total
}
