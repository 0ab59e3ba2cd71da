package checkout

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fjod/storefront/cart-service/internal/domain"
)

type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

func (s Status) String() string {
	return string(s)
}

type CartSnapshotItem struct {
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

// CartSnapshot is the cart as it was when the order was placed.
type CartSnapshot struct {
	Items       []CartSnapshotItem `json:"items"`
	TotalAmount float64            `json:"total_amount"`
	Currency    string             `json:"currency"`
	CapturedAt  time.Time          `json:"captured_at"`
}

// OrderLine is what an order submission carries per SKU.
type OrderLine struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type Order struct {
	Number   string       `json:"order_number"`
	Status   Status       `json:"status"`
	Lines    []OrderLine  `json:"lines"`
	Snapshot CartSnapshot `json:"snapshot"`
	PlacedAt time.Time    `json:"placed_at"`
}

// OrderPlaced is published once per order. Consumers clear SessionID's cart.
type OrderPlaced struct {
	SessionID   string      `json:"session_id"`
	OrderNumber string      `json:"order_number"`
	Lines       []OrderLine `json:"lines"`
	TotalAmount float64     `json:"total_amount"`
	Currency    string      `json:"currency"`
	PlacedAt    time.Time   `json:"placed_at"`
}

func buildSnapshot(summary domain.Summary, now time.Time) CartSnapshot {
	snapshot := CartSnapshot{
		Items:      make([]CartSnapshotItem, 0, len(summary.Items)),
		Currency:   "USD",
		CapturedAt: now,
	}

	total := decimal.Zero
	for _, item := range summary.Items {
		subtotal := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		snapshot.Items = append(snapshot.Items, CartSnapshotItem{
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			Subtotal:  subtotal.InexactFloat64(),
		})
		total = total.Add(subtotal)
	}

	snapshot.TotalAmount = total.InexactFloat64()
	return snapshot
}

func orderLines(snapshot CartSnapshot) []OrderLine {
	lines := make([]OrderLine, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		lines = append(lines, OrderLine{SKU: item.SKU, Quantity: item.Quantity})
	}
	return lines
}
