package entities

import "github.com/shopspring/decimal"

// OrderCreationRequest is the validated input of the creation flow. It has no
// identity of its own and is discarded once the order is committed.
type OrderCreationRequest struct {
	UserID    int64
	ProductID int64
	Quantity  int
	Price     decimal.Decimal
}
