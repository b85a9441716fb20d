package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SergeyBogomolovv/purchase-order-service/internal/entities"
	"github.com/SergeyBogomolovv/purchase-order-service/pkg/trm"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type postgresRepo struct {
	db *sqlx.DB
	qb sq.StatementBuilderType
}

func NewPostgresRepo(db *sqlx.DB) *postgresRepo {
	return &postgresRepo{
		db: db,
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// CreateOrder writes the order and all of its lines as one logical unit and
// returns the generated order id. Callers run it inside a trm transaction so
// an order row can never exist without its lines.
func (r *postgresRepo) CreateOrder(ctx context.Context, o entities.Order) (int64, error) {
	query, args := r.qb.Insert("orders").
		Columns("user_id", "total_amount", "status", "date_created").
		Values(o.UserID, o.TotalAmount, string(o.Status), o.DateCreated).
		Suffix("RETURNING id").
		MustSql()

	var orderID int64
	if err := r.getContext(ctx, &orderID, query, args...); err != nil {
		return 0, fmt.Errorf("failed to insert order: %w", err)
	}

	if len(o.Lines) > 0 {
		q := r.qb.Insert("order_lines").
			Columns("order_id", "product_id", "quantity", "unit_price", "total_price")
		for _, l := range o.Lines {
			q = q.Values(orderID, l.ProductID, l.Quantity, l.UnitPrice, l.TotalPrice)
		}

		query, args = q.MustSql()
		if _, err := r.execContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("failed to insert order lines: %w", err)
		}
	}

	return orderID, nil
}

func (r *postgresRepo) GetOrderByID(ctx context.Context, orderID int64) (entities.Order, error) {
	query, args := r.qb.Select("id", "user_id", "total_amount", "status", "date_created").
		From("orders").
		Where(sq.Eq{"id": orderID}).
		MustSql()

	var order Order
	err := r.getContext(ctx, &order, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	if err != nil {
		return entities.Order{}, fmt.Errorf("failed to get order: %w", err)
	}

	lines, err := r.linesByOrderIDs(ctx, orderID)
	if err != nil {
		return entities.Order{}, err
	}

	return OrderToEntity(order, lines), nil
}

func (r *postgresRepo) GetOrdersByUserID(ctx context.Context, userID int64) ([]entities.Order, error) {
	query, args := r.qb.Select("id", "user_id", "total_amount", "status", "date_created").
		From("orders").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("date_created DESC").
		MustSql()

	var orders []Order
	if err := r.selectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select orders: %w", err)
	}

	if len(orders) == 0 {
		return []entities.Order{}, nil
	}

	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	lines, err := r.linesByOrderIDs(ctx, ids...)
	if err != nil {
		return nil, err
	}
	linesMap := make(map[int64][]OrderLine, len(ids))
	for _, l := range lines {
		linesMap[l.OrderID] = append(linesMap[l.OrderID], l)
	}

	result := make([]entities.Order, 0, len(orders))
	for _, o := range orders {
		result = append(result, OrderToEntity(o, linesMap[o.ID]))
	}

	return result, nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, orderID int64, status entities.OrderStatus) error {
	query, args := r.qb.Update("orders").
		Set("status", string(status)).
		Where(sq.Eq{"id": orderID}).
		MustSql()

	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return entities.ErrOrderNotFound
	}
	return nil
}

// DeleteOrder removes the order and its lines. Callers run it inside a trm
// transaction. Absent id is reported, never silently swallowed.
func (r *postgresRepo) DeleteOrder(ctx context.Context, orderID int64) error {
	query, args := r.qb.Delete("order_lines").
		Where(sq.Eq{"order_id": orderID}).
		MustSql()
	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete order lines: %w", err)
	}

	query, args = r.qb.Delete("orders").
		Where(sq.Eq{"id": orderID}).
		MustSql()
	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return entities.ErrOrderNotFound
	}
	return nil
}

func (r *postgresRepo) linesByOrderIDs(ctx context.Context, orderIDs ...int64) ([]OrderLine, error) {
	query, args := r.qb.Select("id", "order_id", "product_id", "quantity", "unit_price", "total_price").
		From("order_lines").
		Where(sq.Eq{"order_id": orderIDs}).
		OrderBy("id").
		MustSql()

	var lines []OrderLine
	if err := r.selectContext(ctx, &lines, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select order lines: %w", err)
	}
	return lines, nil
}

func (r *postgresRepo) execContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	tx := trm.ExtractTx(ctx)
	if tx != nil {
		return tx.ExecContext(ctx, query, args...)
	}
	return r.db.ExecContext(ctx, query, args...)
}

func (r *postgresRepo) getContext(ctx context.Context, dest any, query string, args ...any) error {
	tx := trm.ExtractTx(ctx)
	if tx != nil {
		return tx.GetContext(ctx, dest, query, args...)
	}
	return r.db.GetContext(ctx, dest, query, args...)
}

func (r *postgresRepo) selectContext(ctx context.Context, dest any, query string, args ...any) error {
	tx := trm.ExtractTx(ctx)
	if tx != nil {
		return tx.SelectContext(ctx, dest, query, args...)
	}
	return r.db.SelectContext(ctx, dest, query, args...)
}
