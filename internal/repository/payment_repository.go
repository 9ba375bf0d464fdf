package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/checkout-core/internal/model"
	"github.com/fairyhunter13/checkout-core/pkg/database"
)

const paymentColumns = `payment_id, order_id, amount, payment_method, customer_name, customer_phone,
	customer_email, status, gateway_payment_id, gateway_payment_ref, gateway_transaction_id,
	payment_url, transaction_id, created_at, updated_at, completed_at, failed_at`

// PaymentRepository provides data access for payments using pgx.
type PaymentRepository struct {
	pool PoolInterface
}

// NewPaymentRepository creates a new PaymentRepository with the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// NewPaymentRepositoryWithPool creates a new PaymentRepository with a custom pool interface.
// This is primarily used for testing.
func NewPaymentRepositoryWithPool(pool PoolInterface) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// Insert stores a new payment in the initiated state.
func (r *PaymentRepository) Insert(ctx context.Context, p *model.Payment) error {
	query := `INSERT INTO payments (payment_id, order_id, amount, payment_method, customer_name,
		customer_phone, customer_email, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`

	_, err := r.pool.Exec(ctx, query,
		p.PaymentID,
		p.OrderID,
		p.Amount,
		string(p.Method),
		p.CustomerName,
		p.CustomerPhone,
		p.CustomerEmail,
		string(model.PaymentInitiated),
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment %s: %w", p.PaymentID, err)
	}
	p.Status = model.PaymentInitiated
	p.UpdatedAt = p.CreatedAt
	return nil
}

// AttachSession stores the gateway correlation id and redirect URL.
// Only initiated payments are touched.
func (r *PaymentRepository) AttachSession(ctx context.Context, p *model.Payment) error {
	query := `UPDATE payments SET gateway_payment_id = $2, gateway_payment_ref = $3,
		gateway_transaction_id = $4, payment_url = $5, updated_at = NOW()
		WHERE payment_id = $1 AND status = 'initiated'`

	_, err := r.pool.Exec(ctx, query,
		p.PaymentID,
		p.GatewayPaymentID,
		p.GatewayPaymentRef,
		p.GatewayTransactionID,
		p.PaymentURL,
	)
	if err != nil {
		return fmt.Errorf("attach session to payment %s: %w", p.PaymentID, err)
	}
	return nil
}

// GetByID retrieves a payment by its id.
// Returns nil, nil if the payment is not found (service layer handles this).
func (r *PaymentRepository) GetByID(ctx context.Context, paymentID string) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE payment_id = $1`

	p, err := scanPayment(r.pool.QueryRow(ctx, query, paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment %s: %w", paymentID, err)
	}
	return p, nil
}

// ListByOrderForUpdate locks every payment of an order (SELECT FOR UPDATE)
// until the transaction completes, newest first.
// Returns an empty slice if the order has no payment.
func (r *PaymentRepository) ListByOrderForUpdate(ctx context.Context, tx database.TxQuerier, orderID string) ([]*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1
		ORDER BY created_at DESC, payment_id FOR UPDATE`

	rows, err := tx.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("lock payments of order %s: %w", orderID, err)
	}
	defer rows.Close()

	payments := []*model.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment of order %s: %w", orderID, err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments of order %s: %w", orderID, err)
	}
	return payments, nil
}

// MarkCompleted moves an initiated payment to completed.
// Returns false if the payment was no longer initiated.
func (r *PaymentRepository) MarkCompleted(ctx context.Context, q database.TxQuerier, paymentID, transactionID string, at time.Time) (bool, error) {
	query := `UPDATE payments SET status = 'completed', transaction_id = $2, completed_at = $3, updated_at = $3
		WHERE payment_id = $1 AND status = 'initiated'`

	tag, err := q.Exec(ctx, query, paymentID, transactionID, at)
	if err != nil {
		return false, fmt.Errorf("mark payment %s completed: %w", paymentID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkFailed moves an initiated payment to failed. A payment that already
// failed keeps its first failed_at.
// Returns false if the payment was no longer initiated.
func (r *PaymentRepository) MarkFailed(ctx context.Context, q database.TxQuerier, paymentID string, at time.Time) (bool, error) {
	query := `UPDATE payments SET status = 'failed', failed_at = $2, updated_at = $2
		WHERE payment_id = $1 AND status = 'initiated'`

	tag, err := q.Exec(ctx, query, paymentID, at)
	if err != nil {
		return false, fmt.Errorf("mark payment %s failed: %w", paymentID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var (
		p      model.Payment
		method string
		status string
	)
	err := row.Scan(
		&p.PaymentID,
		&p.OrderID,
		&p.Amount,
		&method,
		&p.CustomerName,
		&p.CustomerPhone,
		&p.CustomerEmail,
		&status,
		&p.GatewayPaymentID,
		&p.GatewayPaymentRef,
		&p.GatewayTransactionID,
		&p.PaymentURL,
		&p.TransactionID,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.CompletedAt,
		&p.FailedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Method = model.PaymentMethod(method)
	p.Status = model.PaymentStatus(status)
	return &p, nil
}
