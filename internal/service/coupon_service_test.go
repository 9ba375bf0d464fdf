package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/checkout-core/internal/model"
	"github.com/fairyhunter13/checkout-core/pkg/database"
)

// mockCouponRepository is a mock implementation of CouponRepositoryInterface.
type mockCouponRepository struct {
	insertFn         func(ctx context.Context, coupon *model.Coupon) error
	getByCodeFn      func(ctx context.Context, code string) (*model.Coupon, error)
	listFn           func(ctx context.Context, isActive *bool) ([]*model.Coupon, error)
	updateFn         func(ctx context.Context, coupon *model.Coupon) error
	setActiveFn      func(ctx context.Context, code string, active bool) error
	incrementUsageFn func(ctx context.Context, tx database.TxQuerier, code string, at time.Time) (bool, error)
}

func (m *mockCouponRepository) Insert(ctx context.Context, coupon *model.Coupon) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, coupon)
	}
	return nil
}

func (m *mockCouponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(ctx, code)
	}
	return nil, nil
}

func (m *mockCouponRepository) List(ctx context.Context, isActive *bool) ([]*model.Coupon, error) {
	if m.listFn != nil {
		return m.listFn(ctx, isActive)
	}
	return []*model.Coupon{}, nil
}

func (m *mockCouponRepository) Update(ctx context.Context, coupon *model.Coupon) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, coupon)
	}
	return nil
}

func (m *mockCouponRepository) SetActive(ctx context.Context, code string, active bool) error {
	if m.setActiveFn != nil {
		return m.setActiveFn(ctx, code, active)
	}
	return nil
}

func (m *mockCouponRepository) IncrementUsage(ctx context.Context, tx database.TxQuerier, code string, at time.Time) (bool, error) {
	if m.incrementUsageFn != nil {
		return m.incrementUsageFn(ctx, tx, code, at)
	}
	return true, nil
}

// mockRedemptionRepository is a mock implementation of RedemptionRepositoryInterface.
type mockRedemptionRepository struct {
	insertFn         func(ctx context.Context, tx database.TxQuerier, orderID, code string) (bool, error)
	couponForOrderFn func(ctx context.Context, tx database.TxQuerier, orderID string) (string, error)
	ordersByCouponFn func(ctx context.Context, code string) ([]string, error)
}

func (m *mockRedemptionRepository) Insert(ctx context.Context, tx database.TxQuerier, orderID, code string) (bool, error) {
	if m.insertFn != nil {
		return m.insertFn(ctx, tx, orderID, code)
	}
	return true, nil
}

func (m *mockRedemptionRepository) CouponForOrder(ctx context.Context, tx database.TxQuerier, orderID string) (string, error) {
	if m.couponForOrderFn != nil {
		return m.couponForOrderFn(ctx, tx, orderID)
	}
	return "", nil
}

func (m *mockRedemptionRepository) OrdersByCoupon(ctx context.Context, code string) ([]string, error) {
	if m.ordersByCouponFn != nil {
		return m.ordersByCouponFn(ctx, code)
	}
	return []string{}, nil
}

// mockTx is a mock implementation of pgx.Tx for testing transactions.
type mockTx struct {
	commitFn   func(ctx context.Context) error
	rollbackFn func(ctx context.Context) error
	committed  bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitFn != nil {
		return m.commitFn(ctx)
	}
	m.committed = true
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	if m.rollbackFn != nil {
		return m.rollbackFn(ctx)
	}
	return nil
}

func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (m *mockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *mockTx) Conn() *pgx.Conn {
	return nil
}

// mockTxBeginner is a mock implementation of TxBeginner.
type mockTxBeginner struct {
	beginFn func(ctx context.Context) (pgx.Tx, error)
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginFn != nil {
		return m.beginFn(ctx)
	}
	return &mockTx{}, nil
}

func fixedClock() time.Time {
	return pricingNow
}

func newTestCouponService(pool TxBeginner, couponRepo *mockCouponRepository, redemptionRepo *mockRedemptionRepository) *CouponService {
	return NewCouponServiceWithTxBeginner(pool, couponRepo, redemptionRepo, fixedClock)
}

func TestCouponService_Validate_Success(t *testing.T) {
	var lookedUp string
	mockCouponRepo := &mockCouponRepository{
		getByCodeFn: func(ctx context.Context, code string) (*model.Coupon, error) {
			lookedUp = code
			return activeCoupon(model.DiscountPercentage, "10"), nil
		},
		incrementUsageFn: func(ctx context.Context, tx database.TxQuerier, code string, at time.Time) (bool, error) {
			t.Fatal("validation must not consume a use")
			return false, nil
		},
	}
	svc := newTestCouponService(nil, mockCouponRepo, &mockRedemptionRepository{})

	quote, err := svc.Validate(context.Background(), "  save10 ", dec("1000"))

	require.NoError(t, err)
	assert.Equal(t, "SAVE10", lookedUp, "code should be trimmed and uppercased")
	assert.Equal(t, "100.00", quote.DiscountAmount.StringFixed(2))
	assert.Equal(t, "900.00", quote.FinalAmount.StringFixed(2))
}

func TestCouponService_Validate_NotFound(t *testing.T) {
	svc := newTestCouponService(nil, &mockCouponRepository{}, &mockRedemptionRepository{})

	quote, err := svc.Validate(context.Background(), "NOPE", dec("1000"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCouponNotFound), "error should be ErrCouponNotFound")
	assert.Nil(t, quote)
}

func TestCouponService_Validate_Expired(t *testing.T) {
	mockCouponRepo := &mockCouponRepository{
		getByCodeFn: func(ctx context.Context, code string) (*model.Coupon, error) {
			c := activeCoupon(model.DiscountFixed, "50")
			c.ValidUntil = pricingNow.Add(-time.Hour)
			return c, nil
		},
	}
	svc := newTestCouponService(nil, mockCouponRepo, &mockRedemptionRepository{})

	_, err := svc.Validate(context.Background(), "SAVE10", dec("1000"))

	assert.ErrorIs(t, err, ErrCouponExpired)
}

func TestCouponService_Validate_InvalidInput(t *testing.T) {
	svc := newTestCouponService(nil, &mockCouponRepository{}, &mockRedemptionRepository{})

	_, err := svc.Validate(context.Background(), "   ", dec("1000"))
	assert.ErrorIs(t, err, ErrInvalidRequest, "blank code")

	_, err = svc.Validate(context.Background(), "SAVE10", decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidRequest, "zero amount")
}

func TestCouponService_Validate_RepositoryError(t *testing.T) {
	dbErr := errors.New("database connection failed")
	mockCouponRepo := &mockCouponRepository{
		getByCodeFn: func(ctx context.Context, code string) (*model.Coupon, error) {
			return nil, dbErr
		},
	}
	svc := newTestCouponService(nil, mockCouponRepo, &mockRedemptionRepository{})

	_, err := svc.Validate(context.Background(), "SAVE10", dec("1000"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, dbErr), "should wrap original error")
}

func TestCouponService_Redeem_Success(t *testing.T) {
	tx := &mockTx{}
	mockPool := &mockTxBeginner{
		beginFn: func(ctx context.Context) (pgx.Tx, error) { return tx, nil },
	}
	var redeemedOrder, redeemedCode, incrementedCode string
	mockRedemptionRepo := &mockRedemptionRepository{
		insertFn: func(ctx context.Context, q database.TxQuerier, orderID, code string) (bool, error) {
			assert.Same(t, tx, q, "redemption must be inserted inside the transaction")
			redeemedOrder, redeemedCode = orderID, code
			return true, nil
		},
	}
	mockCouponRepo := &mockCouponRepository{
		incrementUsageFn: func(ctx context.Context, q database.TxQuerier, code string, at time.Time) (bool, error) {
			assert.Same(t, tx, q, "increment must run inside the transaction")
			incrementedCode = code
			return true, nil
		},
	}
	svc := newTestCouponService(mockPool, mockCouponRepo, mockRedemptionRepo)

	err := svc.Redeem(context.Background(), "save10", "ORD-1")

	require.NoError(t, err)
	assert.Equal(t, "ORD-1", redeemedOrder)
	assert.Equal(t, "SAVE10", redeemedCode)
	assert.Equal(t, "SAVE10", incrementedCode)
	assert.True(t, tx.committed, "transaction should be committed")
}

func TestCouponService_Redeem_SameOrderIsNoOp(t *testing.T) {
	tx := &mockTx{}
	mockPool := &mockTxBeginner{
		beginFn: func(ctx context.Context) (pgx.Tx, error) { return tx, nil },
	}
	mockRedemptionRepo := &mockRedemptionRepository{
		insertFn: func(ctx context.Context, q database.TxQuerier, orderID, code string) (bool, error) {
			return false, nil
		},
		couponForOrderFn: func(ctx context.Context, q database.TxQuerier, orderID string) (string, error) {
			return "SAVE10", nil
		},
	}
	mockCouponRepo := &mockCouponRepository{
		incrementUsageFn: func(ctx context.Context, q database.TxQuerier, code string, at time.Time) (bool, error) {
			t.Fatal("a repeated redemption must not increment usage")
			return false, nil
		},
	}
	svc := newTestCouponService(mockPool, mockCouponRepo, mockRedemptionRepo)

	err := svc.Redeem(context.Background(), "save10", "ORD-1")

	require.NoError(t, err)
	assert.False(t, tx.committed)
}

func TestCouponService_Redeem_OrderUsedAnotherCoupon(t *testing.T) {
	mockRedemptionRepo := &mockRedemptionRepository{
		insertFn: func(ctx context.Context, q database.TxQuerier, orderID, code string) (bool, error) {
			return false, nil
		},
		couponForOrderFn: func(ctx context.Context, q database.TxQuerier, orderID string) (string, error) {
			assert.Equal(t, "ORD-1", orderID)
			return "WELCOME", nil
		},
	}
	mockCouponRepo := &mockCouponRepository{
		incrementUsageFn: func(ctx context.Context, q database.TxQuerier, code string, at time.Time) (bool, error) {
			t.Error("a second coupon must not consume a use")
			return false, nil
		},
	}
	svc := newTestCouponService(&mockTxBeginner{}, mockCouponRepo, mockRedemptionRepo)

	err := svc.Redeem(context.Background(), "SAVE10", "ORD-1")

	assert.ErrorIs(t, err, ErrOrderRedeemedOther)
}

func TestCouponService_Redeem_OutsideValidityWindow(t *testing.T) {
	tests := []struct {
		name   string
		adjust func(c *model.Coupon)
		want   error
	}{
		{
			name:   "expired",
			adjust: func(c *model.Coupon) { c.ValidUntil = pricingNow.Add(-time.Minute) },
			want:   ErrCouponExpired,
		},
		{
			name:   "not yet valid",
			adjust: func(c *model.Coupon) { c.ValidFrom = pricingNow.Add(time.Hour) },
			want:   ErrCouponNotYetValid,
		},
		{
			name: "expired and deactivated",
			adjust: func(c *model.Coupon) {
				c.ValidUntil = pricingNow.Add(-time.Minute)
				c.IsActive = false
			},
			want: ErrCouponExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &mockTx{}
			mockPool := &mockTxBeginner{
				beginFn: func(ctx context.Context) (pgx.Tx, error) { return tx, nil },
			}
			var checkedAt time.Time
			mockCouponRepo := &mockCouponRepository{
				incrementUsageFn: func(ctx context.Context, q database.TxQuerier, code string, at time.Time) (bool, error) {
					checkedAt = at
					return false, nil
				},
				getByCodeFn: func(ctx context.Context, code string) (*model.Coupon, error) {
					c := activeCoupon(model.DiscountFixed, "50")
					tt.adjust(c)
					return c, nil
				},
			}
			svc := newTestCouponService(mockPool, mockCouponRepo, &mockRedemptionRepository{})

			err := svc.Redeem(context.Background(), "SAVE10", "ORD-1")

			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, pricingNow, checkedAt, "the window is checked at the service clock")
			assert.False(t, tx.committed, "redemption row must be rolled back")
		})
	}
}

func TestCouponService_Redeem_LimitReached(t *testing.T) {
	tx := &mockTx{}
	mockPool := &mockTxBeginner{
		beginFn: func(ctx context.Context) (pgx.Tx, error) { return tx, nil },
	}
	mockCouponRepo := &mockCouponRepository{
		incrementUsageFn: func(ctx context.Context, q database.TxQuerier, code string, at time.Time) (bool, error) {
			return false, nil
		},
		getByCodeFn: func(ctx context.Context, code string) (*model.Coupon, error) {
			c := activeCoupon(model.DiscountFixed, "50")
			c.UsageLimit = intPtr(5)
			c.UsedCount = 5
			return c, nil
		},
	}
	svc := newTestCouponService(mockPool, mockCouponRepo, &mockRedemptionRepository{})

	err := svc.Redeem(context.Background(), "SAVE10", "ORD-1")

	assert.ErrorIs(t, err, ErrCouponLimitReached)
	assert.False(t, tx.committed, "redemption row must be rolled back")
}

func TestCouponService_Redeem_Inactive(t *testing.T) {
	mockCouponRepo := &mockCouponRepository{
		incrementUsageFn: func(ctx context.Context, q database.TxQuerier, code string, at time.Time) (bool, error) {
			return false, nil
		},
		getByCodeFn: func(ctx context.Context, code string) (*model.Coupon, error) {
			c := activeCoupon(model.DiscountFixed, "50")
			c.IsActive = false
			return c, nil
		},
	}
	svc := newTestCouponService(&mockTxBeginner{}, mockCouponRepo, &mockRedemptionRepository{})

	err := svc.Redeem(context.Background(), "SAVE10", "ORD-1")

	assert.ErrorIs(t, err, ErrCouponInactive)
}

func TestCouponService_Redeem_CouponNotFound(t *testing.T) {
	mockRedemptionRepo := &mockRedemptionRepository{
		insertFn: func(ctx context.Context, q database.TxQuerier, orderID, code string) (bool, error) {
			return false, ErrCouponNotFound
		},
	}
	svc := newTestCouponService(&mockTxBeginner{}, &mockCouponRepository{}, mockRedemptionRepo)

	err := svc.Redeem(context.Background(), "GHOST", "ORD-1")

	assert.ErrorIs(t, err, ErrCouponNotFound)
}

func TestCouponService_Redeem_BeginTxError(t *testing.T) {
	beginErr := errors.New("connection pool exhausted")
	mockPool := &mockTxBeginner{
		beginFn: func(ctx context.Context) (pgx.Tx, error) { return nil, beginErr },
	}
	svc := newTestCouponService(mockPool, &mockCouponRepository{}, &mockRedemptionRepository{})

	err := svc.Redeem(context.Background(), "SAVE10", "ORD-1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, beginErr), "should wrap original error")
}

func TestCouponService_Redeem_CommitError(t *testing.T) {
	commitErr := errors.New("commit failed")
	tx := &mockTx{
		commitFn: func(ctx context.Context) error { return commitErr },
	}
	mockPool := &mockTxBeginner{
		beginFn: func(ctx context.Context) (pgx.Tx, error) { return tx, nil },
	}
	svc := newTestCouponService(mockPool, &mockCouponRepository{}, &mockRedemptionRepository{})

	err := svc.Redeem(context.Background(), "SAVE10", "ORD-1")

	assert.ErrorIs(t, err, commitErr)
}

func TestCouponService_Redeem_InvalidInput(t *testing.T) {
	svc := newTestCouponService(&mockTxBeginner{}, &mockCouponRepository{}, &mockRedemptionRepository{})

	assert.ErrorIs(t, svc.Redeem(context.Background(), "", "ORD-1"), ErrInvalidRequest)
	assert.ErrorIs(t, svc.Redeem(context.Background(), "SAVE10", "  "), ErrInvalidRequest)
}

func validCouponRequest() *model.CouponRequest {
	value := 10.0
	return &model.CouponRequest{
		Code:          "save10",
		DiscountType:  "percentage",
		DiscountValue: &value,
		ValidFrom:     pricingNow.Add(-time.Hour),
		ValidUntil:    pricingNow.Add(720 * time.Hour),
	}
}

func TestCouponService_Create_Success(t *testing.T) {
	var captured *model.Coupon
	mockCouponRepo := &mockCouponRepository{
		insertFn: func(ctx context.Context, coupon *model.Coupon) error {
			captured = coupon
			return nil
		},
	}
	svc := newTestCouponService(nil, mockCouponRepo, &mockRedemptionRepository{})

	coupon, err := svc.Create(context.Background(), validCouponRequest())

	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, "SAVE10", captured.Code, "code should be stored uppercase")
	assert.Equal(t, model.DiscountPercentage, captured.DiscountType)
	assert.True(t, captured.DiscountValue.Equal(dec("10")))
	assert.True(t, captured.IsActive, "coupons are active unless stated otherwise")
	assert.Equal(t, 0, captured.UsedCount)
	assert.Same(t, captured, coupon)
}

func TestCouponService_Create_DuplicateCoupon(t *testing.T) {
	mockCouponRepo := &mockCouponRepository{
		insertFn: func(ctx context.Context, coupon *model.Coupon) error {
			return ErrCouponExists
		},
	}
	svc := newTestCouponService(nil, mockCouponRepo, &mockRedemptionRepository{})

	_, err := svc.Create(context.Background(), validCouponRequest())

	assert.True(t, errors.Is(err, ErrCouponExists), "error should be ErrCouponExists")
}

func TestCouponService_Create_InvalidRequests(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *model.CouponRequest)
	}{
		{"nil discount value", func(r *model.CouponRequest) { r.DiscountValue = nil }},
		{"blank code", func(r *model.CouponRequest) { r.Code = "  " }},
		{"window reversed", func(r *model.CouponRequest) { r.ValidUntil = r.ValidFrom.Add(-time.Minute) }},
		{"percentage above 100", func(r *model.CouponRequest) {
			v := 120.0
			r.DiscountValue = &v
		}},
		{"cap on fixed discount", func(r *model.CouponRequest) {
			r.DiscountType = "fixed"
			maxDiscount := 50.0
			r.MaxDiscount = &maxDiscount
		}},
		{"unknown discount type", func(r *model.CouponRequest) { r.DiscountType = "bogo" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestCouponService(nil, &mockCouponRepository{}, &mockRedemptionRepository{})
			req := validCouponRequest()
			tt.mutate(req)

			_, err := svc.Create(context.Background(), req)

			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}

	svc := newTestCouponService(nil, &mockCouponRepository{}, &mockRedemptionRepository{})
	_, err := svc.Create(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidRequest, "nil request")
}

func TestCouponService_GetDetail_WithRedemptions(t *testing.T) {
	mockCouponRepo := &mockCouponRepository{
		getByCodeFn: func(ctx context.Context, code string) (*model.Coupon, error) {
			c := activeCoupon(model.DiscountFixed, "50")
			c.UsedCount = 2
			return c, nil
		},
	}
	mockRedemptionRepo := &mockRedemptionRepository{
		ordersByCouponFn: func(ctx context.Context, code string) ([]string, error) {
			return []string{"ORD-1", "ORD-2"}, nil
		},
	}
	svc := newTestCouponService(nil, mockCouponRepo, mockRedemptionRepo)

	resp, err := svc.GetDetail(context.Background(), "save10")

	require.NoError(t, err)
	assert.Equal(t, "SAVE10", resp.Code)
	assert.Equal(t, 2, resp.UsedCount)
	assert.Equal(t, []string{"ORD-1", "ORD-2"}, resp.RedeemedOrders)
}

func TestCouponService_GetDetail_NotFound(t *testing.T) {
	svc := newTestCouponService(nil, &mockCouponRepository{}, &mockRedemptionRepository{})

	resp, err := svc.GetDetail(context.Background(), "NONEXISTENT")

	assert.ErrorIs(t, err, ErrCouponNotFound)
	assert.Nil(t, resp)
}

func TestCouponService_List(t *testing.T) {
	var capturedFilter *bool
	mockCouponRepo := &mockCouponRepository{
		listFn: func(ctx context.Context, isActive *bool) ([]*model.Coupon, error) {
			capturedFilter = isActive
			return []*model.Coupon{activeCoupon(model.DiscountFixed, "50")}, nil
		},
	}
	svc := newTestCouponService(nil, mockCouponRepo, &mockRedemptionRepository{})
	active := true

	coupons, err := svc.List(context.Background(), &active)

	require.NoError(t, err)
	assert.Len(t, coupons, 1)
	require.NotNil(t, capturedFilter)
	assert.True(t, *capturedFilter)
}

func TestCouponService_Update_Success(t *testing.T) {
	var updated *model.Coupon
	mockCouponRepo := &mockCouponRepository{
		updateFn: func(ctx context.Context, coupon *model.Coupon) error {
			updated = coupon
			return nil
		},
		getByCodeFn: func(ctx context.Context, code string) (*model.Coupon, error) {
			return updated, nil
		},
	}
	svc := newTestCouponService(nil, mockCouponRepo, &mockRedemptionRepository{})

	coupon, err := svc.Update(context.Background(), "SAVE10", validCouponRequest())

	require.NoError(t, err)
	assert.Equal(t, "SAVE10", coupon.Code)
}

func TestCouponService_Update_CodeMismatch(t *testing.T) {
	svc := newTestCouponService(nil, &mockCouponRepository{}, &mockRedemptionRepository{})

	_, err := svc.Update(context.Background(), "OTHER", validCouponRequest())

	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCouponService_Update_NotFound(t *testing.T) {
	mockCouponRepo := &mockCouponRepository{
		updateFn: func(ctx context.Context, coupon *model.Coupon) error {
			return ErrCouponNotFound
		},
	}
	svc := newTestCouponService(nil, mockCouponRepo, &mockRedemptionRepository{})

	_, err := svc.Update(context.Background(), "SAVE10", validCouponRequest())

	assert.ErrorIs(t, err, ErrCouponNotFound)
}

func TestCouponService_Deactivate(t *testing.T) {
	var capturedCode string
	var capturedActive = true
	mockCouponRepo := &mockCouponRepository{
		setActiveFn: func(ctx context.Context, code string, active bool) error {
			capturedCode = code
			capturedActive = active
			return nil
		},
	}
	svc := newTestCouponService(nil, mockCouponRepo, &mockRedemptionRepository{})

	err := svc.Deactivate(context.Background(), "save10")

	require.NoError(t, err)
	assert.Equal(t, "SAVE10", capturedCode)
	assert.False(t, capturedActive, "deactivation is a soft delete")
}

func TestCouponService_Deactivate_NotFound(t *testing.T) {
	mockCouponRepo := &mockCouponRepository{
		setActiveFn: func(ctx context.Context, code string, active bool) error {
			return ErrCouponNotFound
		},
	}
	svc := newTestCouponService(nil, mockCouponRepo, &mockRedemptionRepository{})

	err := svc.Deactivate(context.Background(), "GHOST")

	assert.ErrorIs(t, err, ErrCouponNotFound)
}
