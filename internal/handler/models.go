package handler

import (
	"time"

	"github.com/SergeyBogomolovv/purchase-order-service/internal/entities"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest is the inbound creation payload
type CreateOrderRequest struct {
	UserID    int64           `json:"user_id" validate:"required,gt=0"`
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	Price     decimal.Decimal `json:"price" validate:"required"`
}

// CreateOrderResponse carries the generated order id
type CreateOrderResponse struct {
	OrderID int64 `json:"order_id"`
}

// UpdateStatusRequest carries the new status string
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderLineDetails is one priced line of an order
type OrderLineDetails struct {
	LineID     int64           `json:"line_id"`
	ProductID  int64           `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// OrderDetails is an order enriched with the owner's display name
type OrderDetails struct {
	OrderID     int64              `json:"order_id"`
	UserName    string             `json:"user_name"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	Status      string             `json:"status"`
	DateCreated time.Time          `json:"date_created"`
	Lines       []OrderLineDetails `json:"lines"`
}

func CreateOrderJSONToEntity(r CreateOrderRequest) entities.OrderCreationRequest {
	return entities.OrderCreationRequest{
		UserID:    r.UserID,
		ProductID: r.ProductID,
		Quantity:  r.Quantity,
		Price:     r.Price,
	}
}

func OrderDetailsEntityToJSON(d entities.OrderDetails) OrderDetails {
	lines := make([]OrderLineDetails, 0, len(d.Lines))
	for _, l := range d.Lines {
		lines = append(lines, OrderLineDetails{
			LineID:     l.ID,
			ProductID:  l.ProductID,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			TotalPrice: l.TotalPrice,
		})
	}

	return OrderDetails{
		OrderID:     d.ID,
		UserName:    d.UserName,
		TotalAmount: d.TotalAmount,
		Status:      string(d.Status),
		DateCreated: d.DateCreated,
		Lines:       lines,
	}
}
