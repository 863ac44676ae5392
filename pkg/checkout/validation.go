package checkout

import (
	"fmt"

	pkgerrors "github.com/wanterio/wanterio-backend/pkg/errors"
)

// StockLine describes the data required to verify a line against its stock snapshot.
type StockLine struct {
	ItemID    string
	Name      string
	Quantity  int
	Available int
}

// StockViolation exposes the data returned to callers when a line exceeds stock.
type StockViolation struct {
	ItemID       string `json:"item_id"`
	Name         string `json:"name"`
	RequestedQty int    `json:"requested_qty"`
	AvailableQty int    `json:"available_qty"`
	Message      string `json:"message"`
}

// StockMessage renders the human-readable error for one offending line.
func StockMessage(name string, requested, available int) string {
	return fmt.Sprintf("%s - Requested quantity (%d) exceeds available stock (%d)", name, requested, available)
}

// CheckStock returns one violation per line whose quantity exceeds its available stock,
// in line order.
func CheckStock(lines []StockLine) []StockViolation {
	var violations []StockViolation
	for _, line := range lines {
		if line.Quantity <= line.Available {
			continue
		}
		violations = append(violations, StockViolation{
			ItemID:       line.ItemID,
			Name:         line.Name,
			RequestedQty: line.Quantity,
			AvailableQty: line.Available,
			Message:      StockMessage(line.Name, line.Quantity, line.Available),
		})
	}
	return violations
}

// StockConflict wraps violations into a state-conflict error, or nil when there are none.
func StockConflict(violations []StockViolation) error {
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("insufficient stock for %d item(s)", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}
