package repo

import (
	"time"

	"github.com/SergeyBogomolovv/purchase-order-service/internal/entities"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID          int64           `db:"id"`
	UserID      int64           `db:"user_id"`
	TotalAmount decimal.Decimal `db:"total_amount"`
	Status      string          `db:"status"`
	DateCreated time.Time       `db:"date_created"`
}

type OrderLine struct {
	ID         int64           `db:"id"`
	OrderID    int64           `db:"order_id"`
	ProductID  int64           `db:"product_id"`
	Quantity   int             `db:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price"`
	TotalPrice decimal.Decimal `db:"total_price"`
}

func LineToEntity(l OrderLine) entities.OrderLine {
	return entities.OrderLine{
		ID:         l.ID,
		OrderID:    l.OrderID,
		ProductID:  l.ProductID,
		Quantity:   l.Quantity,
		UnitPrice:  l.UnitPrice,
		TotalPrice: l.TotalPrice,
	}
}

func OrderToEntity(o Order, lines []OrderLine) entities.Order {
	order := entities.Order{
		ID:          o.ID,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount,
		Status:      entities.OrderStatus(o.Status),
		DateCreated: o.DateCreated,
	}

	if len(lines) > 0 {
		order.Lines = make([]entities.OrderLine, 0, len(lines))
		for _, l := range lines {
			order.Lines = append(order.Lines, LineToEntity(l))
		}
	}

	return order
}
