package cart

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// StorageKey is the local storage key holding the persisted cart.
const StorageKey = "wanterio_cart"

// OwnerKey holds the id of the account the persisted cart belongs to.
const OwnerKey = "wanterio_cart_owner"

type storedCart struct {
	Items       []Item          `json:"items"`
	Total       decimal.Decimal `json:"total"`
	ItemCount   int             `json:"itemCount"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// looseCart decodes each field independently so one bad item cannot poison
// the rest of the document.
type looseCart struct {
	Items       []json.RawMessage `json:"items"`
	LastUpdated json.RawMessage   `json:"lastUpdated"`
}

// Encode renders the cart in its persisted JSON form.
func Encode(c Cart) (string, error) {
	items := c.Items
	if items == nil {
		items = []Item{}
	}
	total, count := totals(items)
	raw, err := json.Marshal(storedCart{
		Items:       items,
		Total:       total,
		ItemCount:   count,
		LastUpdated: c.LastUpdated.UTC(),
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DecodeResult reports how much of a persisted document survived.
type DecodeResult struct {
	Cart    Cart
	Dropped int
	Corrupt bool
}

// Decode parses a persisted cart. An unparseable document yields an empty
// cart; otherwise items are kept individually when valid and totals are
// recomputed from them.
func Decode(payload string) DecodeResult {
	var doc looseCart
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return DecodeResult{Cart: snapshotOf(nil, time.Time{}), Corrupt: true}
	}

	items := make([]Item, 0, len(doc.Items))
	dropped := 0
	for _, raw := range doc.Items {
		var item Item
		if err := json.Unmarshal(raw, &item); err != nil || !validForCart(item) || indexOf(items, item.ID) >= 0 {
			dropped++
			continue
		}
		items = append(items, item)
	}

	var lastUpdated time.Time
	if len(doc.LastUpdated) > 0 {
		if err := json.Unmarshal(doc.LastUpdated, &lastUpdated); err != nil {
			lastUpdated = time.Time{}
		}
	}
	return DecodeResult{Cart: snapshotOf(items, lastUpdated), Dropped: dropped}
}
