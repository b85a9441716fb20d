package entities

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusCanceled  OrderStatus = "CANCELED"
	StatusFailed    OrderStatus = "FAILED"
)

// ParseOrderStatus rejects unknown status strings before they reach the store.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case StatusPending, StatusCompleted, StatusCanceled, StatusFailed:
		return OrderStatus(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

type Order struct {
	ID          int64
	UserID      int64
	TotalAmount decimal.Decimal
	Status      OrderStatus
	DateCreated time.Time

	Lines []OrderLine
}

// OrderLine references its order by id only, there is no back-pointer.
type OrderLine struct {
	ID         int64
	OrderID    int64
	ProductID  int64
	Quantity   int
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
}

// NewOrder builds a PENDING order with a single line. Line total and order
// total are always recomputed from unit price and quantity, never taken from
// the caller.
func NewOrder(userID, productID int64, quantity int, unitPrice decimal.Decimal) Order {
	total := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	return Order{
		UserID:      userID,
		TotalAmount: total,
		Status:      StatusPending,
		DateCreated: time.Now().UTC(),
		Lines: []OrderLine{{
			ProductID:  productID,
			Quantity:   quantity,
			UnitPrice:  unitPrice,
			TotalPrice: total,
		}},
	}
}

// OrderDetails is the read model: an order enriched with the display name
// resolved from the user service.
type OrderDetails struct {
	Order
	UserName string
}

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrServiceUnavailable = errors.New("dependency unavailable")
	ErrPriceMismatch      = errors.New("submitted price does not match catalog price")
	ErrInsufficientStock  = errors.New("requested quantity exceeds available stock")
	ErrInvalidStatus      = errors.New("unknown order status")
	ErrCompensationFailed = errors.New("order persisted but inventory adjustment failed")
	ErrOrderNotCommitted  = errors.New("order id was not generated")
	ErrDependencyFailed   = errors.New("dependency call failed")
	ErrInvalidOrder       = errors.New("invalid order data")
)

func (o *Order) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(o); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (o *Order) Unmarshal(data []byte) error {
	buf := bytes.NewBuffer(data)
	dec := gob.NewDecoder(buf)
	if err := dec.Decode(o); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}
	return nil
}

func init() {
	gob.Register(Order{})
	gob.Register(OrderLine{})
}
