package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/checkout-core/internal/model"
	"github.com/fairyhunter13/checkout-core/internal/service"
	"github.com/fairyhunter13/checkout-core/pkg/database"
)

const couponColumns = `code, description, discount_type, discount_value, min_order_amount, max_discount,
	usage_limit, used_count, valid_from, valid_until, is_active, created_at, updated_at`

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// CouponRepository provides data access for coupons using pgx.
type CouponRepository struct {
	pool PoolInterface
}

// NewCouponRepository creates a new CouponRepository with the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// NewCouponRepositoryWithPool creates a new CouponRepository with a custom pool interface.
// This is primarily used for testing.
func NewCouponRepositoryWithPool(pool PoolInterface) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// Insert inserts a new coupon into the database.
// Returns service.ErrCouponExists if a coupon with the same code already exists.
func (r *CouponRepository) Insert(ctx context.Context, coupon *model.Coupon) error {
	query := `INSERT INTO coupons (code, description, discount_type, discount_value, min_order_amount,
		max_discount, usage_limit, used_count, valid_from, valid_until, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10)
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		coupon.Code,
		coupon.Description,
		string(coupon.DiscountType),
		coupon.DiscountValue,
		nullDecimal(coupon.MinOrderAmount),
		nullDecimal(coupon.MaxDiscount),
		coupon.UsageLimit,
		coupon.ValidFrom,
		coupon.ValidUntil,
		coupon.IsActive,
	).Scan(&coupon.CreatedAt, &coupon.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrCouponExists
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

// GetByCode retrieves a coupon by its normalized code.
// Returns nil, nil if the coupon is not found (service layer handles this).
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	coupon, err := scanCoupon(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get coupon by code %s: %w", code, err)
	}
	return coupon, nil
}

// List returns coupons newest first, optionally filtered by is_active.
// On success, returns an empty slice (not nil) when no coupons exist.
func (r *CouponRepository) List(ctx context.Context, isActive *bool) ([]*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons
		WHERE ($1::boolean IS NULL OR is_active = $1)
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, isActive)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	coupons := []*model.Coupon{}
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, coupon)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coupon rows: %w", err)
	}
	return coupons, nil
}

// Update replaces the editable fields of a coupon. used_count is left as is.
// Returns service.ErrCouponNotFound if no row matches.
func (r *CouponRepository) Update(ctx context.Context, coupon *model.Coupon) error {
	query := `UPDATE coupons SET description = $2, discount_type = $3, discount_value = $4,
		min_order_amount = $5, max_discount = $6, usage_limit = $7, valid_from = $8,
		valid_until = $9, is_active = $10, updated_at = NOW()
		WHERE code = $1`

	tag, err := r.pool.Exec(ctx, query,
		coupon.Code,
		coupon.Description,
		string(coupon.DiscountType),
		coupon.DiscountValue,
		nullDecimal(coupon.MinOrderAmount),
		nullDecimal(coupon.MaxDiscount),
		coupon.UsageLimit,
		coupon.ValidFrom,
		coupon.ValidUntil,
		coupon.IsActive,
	)
	if err != nil {
		return fmt.Errorf("update coupon %s: %w", coupon.Code, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCouponNotFound
	}
	return nil
}

// SetActive flips the active flag of a coupon.
// Returns service.ErrCouponNotFound if no row matches.
func (r *CouponRepository) SetActive(ctx context.Context, code string, active bool) error {
	query := `UPDATE coupons SET is_active = $2, updated_at = NOW() WHERE code = $1`

	tag, err := r.pool.Exec(ctx, query, code, active)
	if err != nil {
		return fmt.Errorf("set coupon %s active=%t: %w", code, active, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCouponNotFound
	}
	return nil
}

// IncrementUsage consumes one use of an active coupon if at is inside its
// validity window and its limit allows it. The check and the increment are a
// single conditional UPDATE, so concurrent callers can never push used_count
// past usage_limit.
// Returns false when no row qualified.
func (r *CouponRepository) IncrementUsage(ctx context.Context, tx database.TxQuerier, code string, at time.Time) (bool, error) {
	query := `UPDATE coupons SET used_count = used_count + 1, updated_at = NOW()
		WHERE code = $1 AND is_active
		AND valid_from <= $2 AND valid_until >= $2
		AND (usage_limit IS NULL OR used_count < usage_limit)`

	tag, err := tx.Exec(ctx, query, code, at)
	if err != nil {
		return false, fmt.Errorf("increment usage for %s: %w", code, err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var (
		coupon       model.Coupon
		discountType string
		minOrder     decimal.NullDecimal
		maxDiscount  decimal.NullDecimal
	)
	err := row.Scan(
		&coupon.Code,
		&coupon.Description,
		&discountType,
		&coupon.DiscountValue,
		&minOrder,
		&maxDiscount,
		&coupon.UsageLimit,
		&coupon.UsedCount,
		&coupon.ValidFrom,
		&coupon.ValidUntil,
		&coupon.IsActive,
		&coupon.CreatedAt,
		&coupon.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	coupon.DiscountType = model.DiscountType(discountType)
	coupon.MinOrderAmount = decimalPtr(minOrder)
	coupon.MaxDiscount = decimalPtr(maxDiscount)
	return &coupon, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
