package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/checkout-core/internal/gateway"
	"github.com/fairyhunter13/checkout-core/internal/model"
	"github.com/fairyhunter13/checkout-core/pkg/database"
)

const (
	notifyTimeout = 10 * time.Second
	// fallbackTimeout bounds the mark-failed attempt after an aborted callback.
	fallbackTimeout = 5 * time.Second
)

// PaymentRepositoryInterface defines the interface for payment data access.
type PaymentRepositoryInterface interface {
	Insert(ctx context.Context, payment *model.Payment) error
	AttachSession(ctx context.Context, payment *model.Payment) error
	GetByID(ctx context.Context, paymentID string) (*model.Payment, error)
	ListByOrderForUpdate(ctx context.Context, tx database.TxQuerier, orderID string) ([]*model.Payment, error)
	MarkCompleted(ctx context.Context, q database.TxQuerier, paymentID, transactionID string, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, q database.TxQuerier, paymentID string, at time.Time) (bool, error)
}

// OrderRepositoryInterface defines the interface for the order collaborator.
type OrderRepositoryInterface interface {
	GetByID(ctx context.Context, orderID string) (*model.Order, error)
	UpdatePaymentStatus(ctx context.Context, q database.TxQuerier, orderID string, status model.OrderPaymentStatus) error
}

// GatewayResolver returns the adapter serving a payment method.
type GatewayResolver interface {
	Get(method model.PaymentMethod) (gateway.Gateway, error)
}

// Notifier receives purchase events once a payment is completed.
type Notifier interface {
	PurchaseCompleted(ctx context.Context, event model.PurchaseEvent) error
}

// DB is implemented by pgxpool.Pool: transactions plus direct queries.
type DB interface {
	TxBeginner
	database.TxQuerier
}

// InitiateInput is the validated input of Initiate.
type InitiateInput struct {
	OrderID  string
	Amount   decimal.Decimal
	Method   model.PaymentMethod
	Customer model.Customer
}

// PaymentService orchestrates payment creation and callback reconciliation.
type PaymentService struct {
	db       DB
	payments PaymentRepositoryInterface
	orders   OrderRepositoryInterface
	gateways GatewayResolver
	notifier Notifier
	timeout  time.Duration
	now      func() time.Time

	wg sync.WaitGroup
}

// NewPaymentService creates a PaymentService. timeout bounds the gateway work of
// a single initiate or callback, independently of the caller's context.
func NewPaymentService(db DB, payments PaymentRepositoryInterface, orders OrderRepositoryInterface, gateways GatewayResolver, notifier Notifier, timeout time.Duration) *PaymentService {
	return &PaymentService{
		db:       db,
		payments: payments,
		orders:   orders,
		gateways: gateways,
		notifier: notifier,
		timeout:  timeout,
		now:      time.Now,
	}
}

// detach keeps gateway work running when the caller goes away: the provider
// may already have accepted the payment.
func (s *PaymentService) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
}

// Initiate persists an initiated payment and opens a session with the gateway.
// The payment is stored before any gateway call, so on ErrInvalidMethod and
// ErrGateway the returned result still carries the persisted PaymentID.
func (s *PaymentService) Initiate(ctx context.Context, in InitiateInput) (*model.InitiatePaymentResult, error) {
	ctx, cancel := s.detach(ctx)
	defer cancel()

	in.OrderID = strings.TrimSpace(in.OrderID)
	if in.OrderID == "" || !in.Amount.IsPositive() {
		return nil, ErrInvalidRequest
	}

	order, err := s.orders.GetByID(ctx, in.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.PaymentStatus == model.OrderPaymentPaid {
		return nil, ErrOrderAlreadyPaid
	}
	if !order.TotalAmount.Equal(in.Amount) {
		return nil, ErrAmountMismatch
	}

	payment := &model.Payment{
		PaymentID:     uuid.NewString(),
		OrderID:       in.OrderID,
		Amount:        in.Amount,
		Method:        in.Method,
		CustomerName:  in.Customer.Name,
		CustomerPhone: in.Customer.Phone,
		CustomerEmail: in.Customer.Email,
		Status:        model.PaymentInitiated,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.payments.Insert(ctx, payment); err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	result := &model.InitiatePaymentResult{PaymentID: payment.PaymentID}

	gw, err := s.gateways.Get(in.Method)
	if err != nil {
		log.Warn().
			Str("payment_id", payment.PaymentID).
			Str("order_id", payment.OrderID).
			Str("payment_method", string(in.Method)).
			Msg("payment initiated with unknown method")
		return result, ErrInvalidMethod
	}

	session, err := gw.CreatePayment(ctx, gateway.PaymentRequest{
		OrderID:  payment.OrderID,
		Amount:   payment.Amount,
		Customer: in.Customer,
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("gateway", string(gw.Method())).
			Str("payment_id", payment.PaymentID).
			Str("order_id", payment.OrderID).
			Msg("failed to create gateway payment")
		return result, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	payment.SetCorrelation(session.Reference)
	payment.PaymentURL = &session.RedirectURL
	if err := s.payments.AttachSession(ctx, payment); err != nil {
		return result, fmt.Errorf("attach gateway session: %w", err)
	}

	result.RedirectURL = session.RedirectURL
	log.Info().
		Str("gateway", string(gw.Method())).
		Str("payment_id", payment.PaymentID).
		Str("order_id", payment.OrderID).
		Msg("payment initiated")
	return result, nil
}

// GetStatus returns the payment record.
// Returns ErrPaymentNotFound if the payment doesn't exist.
func (s *PaymentService) GetStatus(ctx context.Context, paymentID string) (*model.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// HandleCallback reconciles a gateway notification with the payment of the
// order whose session it reports. The order's payment rows stay locked for
// the whole call, so duplicate deliveries serialize and only the first one
// applies a terminal transition. Later deliveries see the terminal state and
// return without side effects.
func (s *PaymentService) HandleCallback(ctx context.Context, orderID string, payload []byte) (*model.CallbackResult, error) {
	ctx, cancel := s.detach(ctx)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	payments, err := s.payments.ListByOrderForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, fmt.Errorf("lock order payments: %w", err)
	}
	if len(payments) == 0 {
		return nil, ErrPaymentNotFound
	}

	payment, matched := s.matchCallback(payments, payload)
	if payment.Status.Terminal() {
		log.Info().
			Str("payment_id", payment.PaymentID).
			Str("order_id", orderID).
			Str("status", string(payment.Status)).
			Msg("callback for terminal payment ignored")
		return terminalResult(payment.Status), nil
	}
	if !matched && s.foreignReference(payment, payload) {
		// The callback names a session this order never stored; leave every payment as is.
		log.Warn().
			Str("payment_id", payment.PaymentID).
			Str("order_id", orderID).
			Msg("callback reference matches no payment of the order")
		return &model.CallbackResult{Success: false, Message: "Payment reference not recognized"}, nil
	}

	outcome := s.confirm(ctx, payment, payload)
	now := s.now().UTC()

	if outcome.Success {
		txnID := outcome.TransactionID
		if err := s.complete(ctx, tx, payment, txnID, now); err != nil {
			return nil, s.abort(ctx, tx, payment, err)
		}
		s.notifyCompleted(model.PurchaseEvent{
			OrderID:       payment.OrderID,
			PaymentID:     payment.PaymentID,
			Amount:        payment.Amount,
			Method:        payment.Method,
			TransactionID: txnID,
			CompletedAt:   now,
		})
		log.Info().
			Str("gateway", string(payment.Method)).
			Str("payment_id", payment.PaymentID).
			Str("order_id", orderID).
			Str("transaction_id", txnID).
			Msg("payment completed")
		return &model.CallbackResult{Success: true, Message: "Payment completed successfully"}, nil
	}

	if err := s.fail(ctx, tx, payment, now); err != nil {
		return nil, s.abort(ctx, tx, payment, err)
	}
	log.Info().
		Str("gateway", string(payment.Method)).
		Str("payment_id", payment.PaymentID).
		Str("order_id", orderID).
		Msg("payment failed")
	return &model.CallbackResult{Success: false, Message: "Payment failed"}, nil
}

// matchCallback picks the payment a callback belongs to: the one whose stored
// correlation id equals the reference parsed by that payment's own adapter.
// payments is newest first; without a match the newest payment is returned.
func (s *PaymentService) matchCallback(payments []*model.Payment, payload []byte) (*model.Payment, bool) {
	for _, p := range payments {
		stored := p.Correlation()
		if stored == "" {
			continue
		}
		if cb, ok := s.parseFor(p, payload); ok && cb.Reference == stored {
			return p, true
		}
	}
	return payments[0], false
}

// foreignReference reports whether the payload parses for the payment's
// adapter but names a different session than the stored one.
func (s *PaymentService) foreignReference(payment *model.Payment, payload []byte) bool {
	stored := payment.Correlation()
	if stored == "" {
		return false
	}
	cb, ok := s.parseFor(payment, payload)
	return ok && cb.Reference != "" && cb.Reference != stored
}

func (s *PaymentService) parseFor(payment *model.Payment, payload []byte) (cb *gateway.Callback, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			cb, ok = nil, false
		}
	}()
	gw, err := s.gateways.Get(payment.Method)
	if err != nil {
		return nil, false
	}
	cb, err = gw.ParseCallback(payload)
	if err != nil {
		return nil, false
	}
	return cb, true
}

func terminalResult(status model.PaymentStatus) *model.CallbackResult {
	if status == model.PaymentCompleted {
		return &model.CallbackResult{Success: true, Message: "Payment already completed"}
	}
	return &model.CallbackResult{Success: false, Message: "Payment already failed"}
}

// confirm turns a raw callback into a provider-confirmed outcome. Any problem
// along the way yields an unsuccessful result.
func (s *PaymentService) confirm(ctx context.Context, payment *model.Payment, payload []byte) (result gateway.Result) {
	logger := log.With().
		Str("gateway", string(payment.Method)).
		Str("payment_id", payment.PaymentID).
		Str("order_id", payment.OrderID).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("gateway confirmation panicked")
			result = gateway.Result{}
		}
	}()

	// Dispatch on the stored method; the payload never selects the gateway.
	gw, err := s.gateways.Get(payment.Method)
	if err != nil {
		logger.Warn().Err(err).Msg("callback for payment without gateway")
		return gateway.Result{}
	}

	cb, err := gw.ParseCallback(payload)
	if err != nil {
		logger.Warn().Err(err).Msg("malformed callback payload")
		return gateway.Result{}
	}
	if !cb.Success {
		logger.Info().Msg("callback not flagged as success")
		return gateway.Result{Raw: cb.Raw}
	}
	if stored := payment.Correlation(); stored != "" && cb.Reference != stored {
		// Reached only when the reference is empty; never confirm a session blindly.
		logger.Warn().Msg("callback without the payment reference")
		return gateway.Result{Raw: cb.Raw}
	}

	res, err := gw.Confirm(ctx, cb)
	if err != nil {
		logger.Error().Err(err).Msg("gateway confirmation failed")
		return gateway.Result{Raw: cb.Raw}
	}
	if res.Success && res.TransactionID == "" {
		res.TransactionID = cb.Reference
	}
	return *res
}

func (s *PaymentService) complete(ctx context.Context, tx TxCommitter, payment *model.Payment, txnID string, at time.Time) error {
	ok, err := s.payments.MarkCompleted(ctx, tx, payment.PaymentID, txnID, at)
	if err != nil {
		return fmt.Errorf("mark payment completed: %w", err)
	}
	if !ok {
		return fmt.Errorf("payment %s left initiated state concurrently", payment.PaymentID)
	}
	if err := s.orders.UpdatePaymentStatus(ctx, tx, payment.OrderID, model.OrderPaymentPaid); err != nil {
		return fmt.Errorf("update order payment status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PaymentService) fail(ctx context.Context, tx TxCommitter, payment *model.Payment, at time.Time) error {
	ok, err := s.payments.MarkFailed(ctx, tx, payment.PaymentID, at)
	if err != nil {
		return fmt.Errorf("mark payment failed: %w", err)
	}
	if !ok {
		// Already terminal: the first failure timestamp is kept.
		return nil
	}
	if err := s.orders.UpdatePaymentStatus(ctx, tx, payment.OrderID, model.OrderPaymentFailed); err != nil {
		return fmt.Errorf("update order payment status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// abort rolls back and still tries to move the payment to failed so it is not
// left initiated without an operator signal. The fallback gets its own
// deadline: cause may be the operation's deadline running out.
func (s *PaymentService) abort(ctx context.Context, tx TxCommitter, payment *model.Payment, cause error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fallbackTimeout)
	defer cancel()
	_ = tx.Rollback(ctx)

	logger := log.With().
		Str("payment_id", payment.PaymentID).
		Str("order_id", payment.OrderID).
		Logger()
	logger.Error().Err(cause).Msg("callback handling failed, marking payment failed")

	ok, err := s.payments.MarkFailed(ctx, s.db, payment.PaymentID, s.now().UTC())
	if err != nil {
		logger.Error().Err(err).Msg("fallback mark failed did not persist")
		return errors.Join(cause, err)
	}
	if ok {
		if err := s.orders.UpdatePaymentStatus(ctx, s.db, payment.OrderID, model.OrderPaymentFailed); err != nil {
			logger.Error().Err(err).Msg("fallback order update did not persist")
		}
	}
	return cause
}

// TxCommitter is the part of pgx.Tx used once a transition is decided.
type TxCommitter interface {
	database.TxQuerier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// notifyCompleted publishes the purchase event in the background. Failures are
// logged only; the payment is already committed.
func (s *PaymentService) notifyCompleted(event model.PurchaseEvent) {
	if s.notifier == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.PurchaseCompleted(ctx, event); err != nil {
			log.Warn().
				Err(err).
				Str("order_id", event.OrderID).
				Str("payment_id", event.PaymentID).
				Msg("purchase notification failed")
		}
	}()
}

// Wait blocks until background notifications have finished.
func (s *PaymentService) Wait() {
	s.wg.Wait()
}
