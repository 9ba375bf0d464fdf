package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/checkout-core/internal/service"
	"github.com/fairyhunter13/checkout-core/pkg/database"
)

// RedemptionPoolInterface defines the database operations needed by RedemptionRepository.
type RedemptionPoolInterface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// RedemptionRepository records which order consumed a use of which coupon.
type RedemptionRepository struct {
	pool RedemptionPoolInterface
}

// NewRedemptionRepository creates a new RedemptionRepository with the given pool.
func NewRedemptionRepository(pool *pgxpool.Pool) *RedemptionRepository {
	return &RedemptionRepository{pool: pool}
}

// NewRedemptionRepositoryWithPool creates a new RedemptionRepository with a custom pool interface.
// This is primarily used for testing.
func NewRedemptionRepositoryWithPool(pool RedemptionPoolInterface) *RedemptionRepository {
	return &RedemptionRepository{pool: pool}
}

// OrdersByCoupon lists the order IDs that redeemed a coupon, oldest first.
// On success, returns an empty slice (not nil) when none exist.
func (r *RedemptionRepository) OrdersByCoupon(ctx context.Context, code string) ([]string, error) {
	query := `SELECT order_id FROM coupon_redemptions WHERE coupon_code = $1 ORDER BY redeemed_at`

	rows, err := r.pool.Query(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("get redemptions for coupon %s: %w", code, err)
	}
	defer rows.Close()

	orders := []string{}
	for rows.Next() {
		var orderID string
		if err := rows.Scan(&orderID); err != nil {
			return nil, fmt.Errorf("scan redemption order_id: %w", err)
		}
		orders = append(orders, orderID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate redemption rows: %w", err)
	}
	return orders, nil
}

// CouponForOrder returns the coupon code an order redeemed, or "" if none.
func (r *RedemptionRepository) CouponForOrder(ctx context.Context, tx database.TxQuerier, orderID string) (string, error) {
	query := `SELECT coupon_code FROM coupon_redemptions WHERE order_id = $1`

	var code string
	if err := tx.QueryRow(ctx, query, orderID).Scan(&code); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get redemption of order %s: %w", orderID, err)
	}
	return code, nil
}

// Insert records a redemption within a transaction.
// Returns false if the order already redeemed a coupon.
// Returns service.ErrCouponNotFound if the coupon doesn't exist.
func (r *RedemptionRepository) Insert(ctx context.Context, tx database.TxQuerier, orderID, code string) (bool, error) {
	query := `INSERT INTO coupon_redemptions (order_id, coupon_code) VALUES ($1, $2)
		ON CONFLICT (order_id) DO NOTHING`

	tag, err := tx.Exec(ctx, query, orderID, code)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return false, service.ErrCouponNotFound
		}
		return false, fmt.Errorf("insert redemption: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
