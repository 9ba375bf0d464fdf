package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/checkout-core/internal/model"
	"github.com/fairyhunter13/checkout-core/internal/service"
	"github.com/fairyhunter13/checkout-core/pkg/database"
)

// OrderRepository reads orders and keeps their payment status in sync.
type OrderRepository struct {
	pool PoolInterface
}

// NewOrderRepository creates a new OrderRepository with the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// NewOrderRepositoryWithPool creates a new OrderRepository with a custom pool interface.
// This is primarily used for testing.
func NewOrderRepositoryWithPool(pool PoolInterface) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// GetByID retrieves an order.
// Returns nil, nil if the order is not found (service layer handles this).
func (r *OrderRepository) GetByID(ctx context.Context, orderID string) (*model.Order, error) {
	query := `SELECT order_id, total_amount, COALESCE(payment_method, ''), payment_status
		FROM orders WHERE order_id = $1`

	var (
		order  model.Order
		status string
	)
	err := r.pool.QueryRow(ctx, query, orderID).Scan(
		&order.OrderID,
		&order.TotalAmount,
		&order.PaymentMethod,
		&status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	order.PaymentStatus = model.OrderPaymentStatus(status)
	return &order, nil
}

// UpdatePaymentStatus sets the denormalized payment status of an order.
// A paid order stays paid: a stale session failing later does not undo it.
// Returns service.ErrOrderNotFound if no row matches.
func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, q database.TxQuerier, orderID string, status model.OrderPaymentStatus) error {
	query := `UPDATE orders SET payment_status = CASE WHEN payment_status = 'paid' THEN payment_status ELSE $2 END,
		updated_at = NOW() WHERE order_id = $1`

	tag, err := q.Exec(ctx, query, orderID, string(status))
	if err != nil {
		return fmt.Errorf("update order %s payment status: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrOrderNotFound
	}
	return nil
}
