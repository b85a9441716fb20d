package entities

import "github.com/shopspring/decimal"

// User is the decoded user-service payload. Transient, never persisted.
type User struct {
	ID   int64
	Name string
}

// Product is the decoded product-service payload: catalog price and the
// quantity currently available.
type Product struct {
	ID       int64
	Price    decimal.Decimal
	Quantity int
}
