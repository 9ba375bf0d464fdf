package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/checkout-core/internal/model"
	"github.com/fairyhunter13/checkout-core/pkg/database"
)

// CouponRepositoryInterface defines the interface for coupon data access.
type CouponRepositoryInterface interface {
	Insert(ctx context.Context, coupon *model.Coupon) error
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	List(ctx context.Context, isActive *bool) ([]*model.Coupon, error)
	Update(ctx context.Context, coupon *model.Coupon) error
	SetActive(ctx context.Context, code string, active bool) error
	IncrementUsage(ctx context.Context, tx database.TxQuerier, code string, at time.Time) (bool, error)
}

// RedemptionRepositoryInterface defines the interface for per-order coupon redemptions.
type RedemptionRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, orderID, code string) (bool, error)
	CouponForOrder(ctx context.Context, tx database.TxQuerier, orderID string) (string, error)
	OrdersByCoupon(ctx context.Context, code string) ([]string, error)
}

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CouponService provides business logic for coupon operations.
type CouponService struct {
	pool           TxBeginner
	couponRepo     CouponRepositoryInterface
	redemptionRepo RedemptionRepositoryInterface
	now            func() time.Time
}

// NewCouponService creates a new CouponService with the given pool and repositories.
func NewCouponService(pool *pgxpool.Pool, couponRepo CouponRepositoryInterface, redemptionRepo RedemptionRepositoryInterface) *CouponService {
	return NewCouponServiceWithTxBeginner(pool, couponRepo, redemptionRepo, time.Now)
}

// NewCouponServiceWithTxBeginner creates a CouponService with a custom TxBeginner and clock.
// Primarily used for testing.
func NewCouponServiceWithTxBeginner(pool TxBeginner, couponRepo CouponRepositoryInterface, redemptionRepo RedemptionRepositoryInterface, now func() time.Time) *CouponService {
	return &CouponService{
		pool:           pool,
		couponRepo:     couponRepo,
		redemptionRepo: redemptionRepo,
		now:            now,
	}
}

// NormalizeCode trims and uppercases a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate prices a coupon against an order amount at the current time.
// It never consumes a use of the coupon.
func (s *CouponService) Validate(ctx context.Context, code string, orderAmount decimal.Decimal) (*model.Quote, error) {
	code = NormalizeCode(code)
	if code == "" || !orderAmount.IsPositive() {
		return nil, ErrInvalidRequest
	}

	coupon, err := s.couponRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}

	return Price(coupon, orderAmount, s.now().UTC())
}

// Redeem records one use of the coupon for orderID.
// Repeating the call for the same order and code is a no-op.
// Returns:
//   - ErrCouponNotFound if the coupon doesn't exist
//   - ErrCouponExpired or ErrCouponNotYetValid outside the validity window
//   - ErrCouponInactive if the coupon was deactivated
//   - ErrCouponLimitReached if every use has been consumed
//   - ErrOrderRedeemedOther if the order already used another coupon
func (s *CouponService) Redeem(ctx context.Context, code, orderID string) error {
	code = NormalizeCode(code)
	orderID = strings.TrimSpace(orderID)
	if code == "" || orderID == "" {
		return ErrInvalidRequest
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	// 1. Claim the order (primary key on order_id)
	inserted, err := s.redemptionRepo.Insert(ctx, tx, orderID, code)
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return ErrCouponNotFound
		}
		return fmt.Errorf("insert redemption: %w", err)
	}
	if !inserted {
		return s.checkSameCoupon(ctx, tx, orderID, code)
	}

	// 2. Conditional increment inside the validity window and under the usage limit
	now := s.now().UTC()
	incremented, err := s.couponRepo.IncrementUsage(ctx, tx, code, now)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	if !incremented {
		return s.diagnoseRedeemFailure(ctx, code, now)
	}

	return tx.Commit(ctx)
}

// checkSameCoupon resolves a repeated redemption: the same code is a no-op,
// another code is rejected.
func (s *CouponService) checkSameCoupon(ctx context.Context, tx database.TxQuerier, orderID, code string) error {
	stored, err := s.redemptionRepo.CouponForOrder(ctx, tx, orderID)
	if err != nil {
		return fmt.Errorf("get order redemption: %w", err)
	}
	if stored != code {
		return ErrOrderRedeemedOther
	}
	return nil
}

func (s *CouponService) diagnoseRedeemFailure(ctx context.Context, code string, now time.Time) error {
	coupon, err := s.couponRepo.GetByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("get coupon: %w", err)
	}
	switch {
	case coupon == nil:
		return ErrCouponNotFound
	case now.After(coupon.ValidUntil):
		return ErrCouponExpired
	case !coupon.IsActive:
		return ErrCouponInactive
	case now.Before(coupon.ValidFrom):
		return ErrCouponNotYetValid
	default:
		return ErrCouponLimitReached
	}
}

// Create creates a new coupon from the request.
// Returns ErrCouponExists if a coupon with the same code already exists.
// Returns ErrInvalidRequest if request data is nil or inconsistent.
func (s *CouponService) Create(ctx context.Context, req *model.CouponRequest) (*model.Coupon, error) {
	coupon, err := couponFromRequest(req)
	if err != nil {
		return nil, err
	}
	coupon.UsedCount = 0
	if err := s.couponRepo.Insert(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// GetByCode retrieves a coupon by its code.
// Returns ErrCouponNotFound if the coupon doesn't exist.
func (s *CouponService) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	coupon, err := s.couponRepo.GetByCode(ctx, NormalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

// GetDetail retrieves a coupon with the orders that redeemed it.
// Returns ErrCouponNotFound if the coupon doesn't exist.
func (s *CouponService) GetDetail(ctx context.Context, code string) (*model.CouponResponse, error) {
	coupon, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	orders, err := s.redemptionRepo.OrdersByCoupon(ctx, coupon.Code)
	if err != nil {
		return nil, fmt.Errorf("get redemptions: %w", err)
	}

	resp := model.NewCouponResponse(coupon)
	resp.RedeemedOrders = orders
	return resp, nil
}

// List returns coupons, optionally filtered by their active flag.
func (s *CouponService) List(ctx context.Context, isActive *bool) ([]*model.Coupon, error) {
	coupons, err := s.couponRepo.List(ctx, isActive)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, nil
}

// Update replaces the editable fields of the coupon identified by code.
// The usage counter is never touched.
func (s *CouponService) Update(ctx context.Context, code string, req *model.CouponRequest) (*model.Coupon, error) {
	coupon, err := couponFromRequest(req)
	if err != nil {
		return nil, err
	}
	if coupon.Code != NormalizeCode(code) {
		return nil, ErrInvalidRequest
	}
	if err := s.couponRepo.Update(ctx, coupon); err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("update coupon: %w", err)
	}
	return s.GetByCode(ctx, coupon.Code)
}

// Deactivate soft-deletes a coupon; historical orders keep referencing it.
func (s *CouponService) Deactivate(ctx context.Context, code string) error {
	if err := s.couponRepo.SetActive(ctx, NormalizeCode(code), false); err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return ErrCouponNotFound
		}
		return fmt.Errorf("deactivate coupon: %w", err)
	}
	return nil
}

func couponFromRequest(req *model.CouponRequest) (*model.Coupon, error) {
	// Defense-in-depth: check for nil pointer even though handler validates
	if req == nil || req.DiscountValue == nil {
		return nil, ErrInvalidRequest
	}
	code := NormalizeCode(req.Code)
	if code == "" || !req.ValidUntil.After(req.ValidFrom) {
		return nil, ErrInvalidRequest
	}

	kind := model.DiscountType(req.DiscountType)
	value := decimal.NewFromFloat(*req.DiscountValue)
	switch kind {
	case model.DiscountPercentage:
		if value.GreaterThan(hundred) {
			return nil, ErrInvalidRequest
		}
	case model.DiscountFixed:
		if req.MaxDiscount != nil {
			return nil, ErrInvalidRequest
		}
	default:
		return nil, ErrInvalidRequest
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	return &model.Coupon{
		Code:           code,
		Description:    req.Description,
		DiscountType:   kind,
		DiscountValue:  value,
		MinOrderAmount: floatToDecimalPtr(req.MinOrderAmount),
		MaxDiscount:    floatToDecimalPtr(req.MaxDiscount),
		UsageLimit:     req.UsageLimit,
		ValidFrom:      req.ValidFrom.UTC(),
		ValidUntil:     req.ValidUntil.UTC(),
		IsActive:       active,
	}, nil
}

func floatToDecimalPtr(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}
