package cart

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWritesDecimalsAsStrings(t *testing.T) {
	c := snapshotOf([]Item{{ID: "a", Name: "A", Price: decimal.RequireFromString("12.50"), StockQuantity: 100, Quantity: 2}},
		time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC))

	payload, err := Encode(c)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &doc))
	assert.Equal(t, "25", doc["total"])
	assert.Equal(t, float64(2), doc["itemCount"])
	assert.Equal(t, "2026-10-18T10:00:00Z", doc["lastUpdated"])
	items := doc["items"].([]any)
	assert.Equal(t, "12.5", items[0].(map[string]any)["price"])
}

func TestDecodeToleratesBadTimestamp(t *testing.T) {
	result := Decode(`{"items":[{"id":"a","price":"1","stock_quantity":2,"quantity":1}],"lastUpdated":"yesterday"}`)
	assert.False(t, result.Corrupt)
	require.Len(t, result.Cart.Items, 1)
	assert.True(t, result.Cart.LastUpdated.IsZero())
}

func TestDecodeEmptyInputs(t *testing.T) {
	assert.True(t, Decode("").Corrupt)
	assert.True(t, Decode(`[]`).Corrupt)
	assert.True(t, Decode(`null`).Cart.IsEmpty())
	assert.Equal(t, 0, Decode(`{"items":null}`).Cart.ItemCount)
}
