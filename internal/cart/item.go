package cart

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wanterio/wanterio-backend/pkg/checkout"
)

// Item is one cart line. StockQuantity is the stock snapshot taken when the
// item was last added or refreshed; it can go stale.
type Item struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Category      string          `json:"category,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Quantity      int             `json:"quantity"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// LineTotal is price times quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is an immutable snapshot of the cart state.
type Cart struct {
	Items       []Item          `json:"items"`
	Total       decimal.Decimal `json:"total"`
	ItemCount   int             `json:"itemCount"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// StockValidation is the result of checking every line against its stock snapshot.
type StockValidation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func totals(items []Item) (decimal.Decimal, int) {
	total := decimal.Zero
	count := 0
	for _, item := range items {
		total = total.Add(item.LineTotal())
		count += item.Quantity
	}
	return total, count
}

func snapshotOf(items []Item, lastUpdated time.Time) Cart {
	copied := make([]Item, len(items))
	copy(copied, items)
	total, count := totals(copied)
	return Cart{
		Items:       copied,
		Total:       total,
		ItemCount:   count,
		LastUpdated: lastUpdated,
	}
}

func validateStock(items []Item) StockValidation {
	lines := make([]checkout.StockLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, checkout.StockLine{
			ItemID:    item.ID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Available: item.StockQuantity,
		})
	}
	violations := checkout.CheckStock(lines)
	result := StockValidation{Valid: len(violations) == 0, Errors: []string{}}
	for _, v := range violations {
		result.Errors = append(result.Errors, v.Message)
	}
	return result
}

// validForCart reports whether an item read back from storage can be kept.
func validForCart(item Item) bool {
	return strings.TrimSpace(item.ID) != "" &&
		item.Quantity > 0 &&
		!item.Price.IsNegative() &&
		item.StockQuantity >= 0
}

func indexOf(items []Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
