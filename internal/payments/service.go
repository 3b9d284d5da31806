package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/nhannt26/e-commerce-website-v3/internal/notifications"
	"github.com/nhannt26/e-commerce-website-v3/internal/orders"
	"github.com/nhannt26/e-commerce-website-v3/internal/payments/vnpay"
	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
	"github.com/nhannt26/e-commerce-website-v3/pkg/logger"
	"github.com/nhannt26/e-commerce-website-v3/pkg/metrics"
)

const currencyVND = "VND"

var errAlreadyResolved = errors.New("transaction already resolved")

// Service creates payment attempts and reconciles gateway results.
type Service interface {
	CreateForOrder(ctx context.Context, orderID uuid.UUID, gateway enums.PaymentGateway) (*models.Transaction, error)
	CreatePayment(ctx context.Context, input CreatePaymentInput) (*PaymentSession, error)
	RetryPayment(ctx context.Context, input CreatePaymentInput) (*PaymentSession, error)
	Reconcile(ctx context.Context, params map[string]string, source Source) Outcome
	ProcessRefund(ctx context.Context, input RefundInput) (*models.Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID, actor orders.Actor) (*models.Transaction, error)
	ListForOrder(ctx context.Context, orderID uuid.UUID, actor orders.Actor) ([]models.Transaction, error)
	SweepPending(ctx context.Context, opts SweepOptions) (SweepResult, error)
}

type gateway interface {
	BuildPaymentURL(req vnpay.PaymentRequest) (*vnpay.PaymentURL, error)
	Verify(params map[string]string) bool
	QueryTransaction(ctx context.Context, req vnpay.QueryRequest) (*vnpay.QueryResult, error)
}

type orderLedger interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkAsPaidTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, transactionID string) (*models.Order, error)
	SetPaymentStatusTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, status enums.PaymentStatus) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo     Repository
	tx       txRunner
	orders   orderLedger
	gateway  gateway
	notifier notifications.Notifier
	metrics  *metrics.PaymentMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// ServiceParams groups the collaborators of the payment service.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Orders   orderLedger
	Gateway  gateway
	Notifier notifications.Notifier
	Metrics  *metrics.PaymentMetrics
	Logger   *logger.Logger
}

// NewService validates the collaborators and builds the payment service.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("transaction repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	if p.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	notifier := p.Notifier
	if notifier == nil {
		notifier = notifications.Discard
	}
	return &service{
		repo:     p.Repo,
		tx:       p.Tx,
		orders:   p.Orders,
		gateway:  p.Gateway,
		notifier: notifier,
		metrics:  p.Metrics,
		logg:     p.Logger,
		now:      time.Now,
	}, nil
}

// NewTransactionRef returns a unique, time-sortable transaction id.
func NewTransactionRef() string {
	return "TXN" + ulid.Make().String()
}

// CreateForOrder opens a pending transaction for the order total.
func (s *service) CreateForOrder(ctx context.Context, orderID uuid.UUID, gw enums.PaymentGateway) (*models.Transaction, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.openTransaction(ctx, order, gw, nil)
}

func (s *service) openTransaction(ctx context.Context, order *models.Order, gw enums.PaymentGateway, mutate func(*models.Transaction)) (*models.Transaction, error) {
	if err := payable(order); err != nil {
		return nil, err
	}
	if !gw.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment gateway")
	}
	txn := &models.Transaction{
		TransactionRef: NewTransactionRef(),
		OrderID:        order.ID,
		UserID:         order.UserID,
		Gateway:        gw,
		Amount:         order.Total,
		Currency:       currencyVND,
		Status:         enums.TransactionStatusPending,
		InitiatedAt:    s.now(),
	}
	if mutate != nil {
		mutate(txn)
	}
	if err := s.repo.Create(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create transaction")
	}
	return txn, nil
}

func payable(order *models.Order) error {
	if order.IsPaid() {
		return pkgerrors.New(pkgerrors.CodeAlreadyPaid, "order already paid").
			WithDetails(map[string]any{"orderNumber": order.OrderNumber})
	}
	if order.Status == enums.OrderStatusCancelled || order.Status == enums.OrderStatusReturned {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is closed").
			WithDetails(map[string]any{"status": order.Status})
	}
	return nil
}

// CreatePayment opens a transaction for the actor's order and returns the
// signed gateway redirect.
func (s *service) CreatePayment(ctx context.Context, input CreatePaymentInput) (*PaymentSession, error) {
	order, err := s.ownedOrder(ctx, input.OrderID, input.Actor)
	if err != nil {
		return nil, err
	}
	return s.startPayment(ctx, order, input)
}

// RetryPayment cancels outstanding attempts for a pending order and starts a
// new one.
func (s *service) RetryPayment(ctx context.Context, input CreatePaymentInput) (*PaymentSession, error) {
	order, err := s.ownedOrder(ctx, input.OrderID, input.Actor)
	if err != nil {
		return nil, err
	}
	if order.IsPaid() {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyPaid, "order already paid")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "can only retry payment for pending orders").
			WithDetails(map[string]any{"status": order.Status})
	}
	if _, err := s.repo.CancelPendingForOrder(ctx, order.ID, s.now()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel pending transactions")
	}
	return s.startPayment(ctx, order, input)
}

func (s *service) ownedOrder(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (*models.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.UserID == uuid.Nil || order.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return order, nil
}

func (s *service) startPayment(ctx context.Context, order *models.Order, input CreatePaymentInput) (*PaymentSession, error) {
	if err := payable(order); err != nil {
		return nil, err
	}
	payment, err := s.gateway.BuildPaymentURL(vnpay.PaymentRequest{
		OrderNumber: order.OrderNumber,
		Amount:      order.Total,
		IPAddress:   input.IPAddress,
		Locale:      input.Locale,
		BankCode:    input.BankCode,
	})
	if err != nil {
		return nil, err
	}

	txn, err := s.openTransaction(ctx, order, enums.PaymentGatewayVNPay, func(txn *models.Transaction) {
		created := payment.CreatedAt
		txn.GatewayRef = &payment.TxnRef
		txn.GatewayCreatedAt = &created
		txn.OrderInfo = &payment.OrderInfo
		txn.SecureHash = &payment.SecureHash
		txn.IPAddress = optional(input.IPAddress)
		txn.UserAgent = optional(input.UserAgent)
		txn.BankCode = optional(input.BankCode)
	})
	if err != nil {
		return nil, err
	}
	return &PaymentSession{
		PaymentURL:    payment.URL,
		TransactionID: txn.TransactionRef,
		Amount:        txn.Amount,
		OrderNumber:   order.OrderNumber,
		Transaction:   txn,
	}, nil
}

// Reconcile verifies and applies a gateway callback exactly once.
func (s *service) Reconcile(ctx context.Context, params map[string]string, source Source) Outcome {
	outcome := s.reconcile(ctx, params, source)
	s.observe(ctx, source, outcome)
	return outcome
}

func (s *service) reconcile(ctx context.Context, params map[string]string, source Source) Outcome {
	if !s.gateway.Verify(params) {
		return Outcome{Kind: OutcomeInvalidSignature, Err: pkgerrors.New(pkgerrors.CodeSignature, "invalid signature")}
	}
	cb, err := vnpay.ParseCallback(params)
	if err != nil {
		return Outcome{Kind: OutcomeError, Err: err}
	}
	txn, err := s.repo.FindByGatewayRef(ctx, cb.TxnRef)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return Outcome{Kind: OutcomeNotFound, ResponseCode: cb.ResponseCode, Err: err}
		}
		return Outcome{Kind: OutcomeError, ResponseCode: cb.ResponseCode, Err: err}
	}
	return s.apply(ctx, txn, cb, source)
}

// apply settles txn from a verified gateway result. The pending check is
// repeated as a conditional write so concurrent deliveries apply once.
func (s *service) apply(ctx context.Context, txn *models.Transaction, cb vnpay.Callback, source Source) Outcome {
	if txn.Status.IsResolved() {
		return Outcome{
			Kind:         OutcomeAlreadyProcessed,
			ResponseCode: cb.ResponseCode,
			Transaction:  txn,
			Err:          pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "transaction already processed"),
		}
	}
	if expected := vnpay.ToMinorUnits(txn.Amount); cb.Amount != expected {
		return Outcome{
			Kind:         OutcomeAmountMismatch,
			ResponseCode: cb.ResponseCode,
			Transaction:  txn,
			Err: pkgerrors.New(pkgerrors.CodeAmountMismatch, "callback amount does not match transaction").
				WithDetails(map[string]any{"expected": expected, "received": cb.Amount}),
		}
	}
	if vnpay.IsSuccess(cb.ResponseCode) {
		return s.settle(ctx, txn, cb, source)
	}
	return s.fail(ctx, txn, cb)
}

func (s *service) settle(ctx context.Context, txn *models.Transaction, cb vnpay.Callback, source Source) Outcome {
	updates := gatewayUpdates(cb)
	updates["status"] = enums.TransactionStatusSuccess
	updates["completed_at"] = s.now()

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).Transition(ctx, txn.ID, enums.TransactionStatusPending, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle transaction")
		}
		if !ok {
			return errAlreadyResolved
		}
		order, err = s.orders.MarkAsPaidTx(ctx, tx, txn.OrderID, txn.TransactionRef)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeAlreadyPaid) || pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
				s.warn(ctx, "payment settled for order that cannot take it", txn, err)
				order = nil
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return s.afterConflict(ctx, txn, cb, err)
	}

	settled := s.reload(ctx, txn)
	extra := map[string]any{
		"transactionId": txn.TransactionRef,
		"amount":        txn.Amount.StringFixed(2),
		"source":        string(source),
	}
	s.notify(ctx, enums.NotificationTypePaymentConfirmed, settled, order, extra)
	return Outcome{
		Kind:         OutcomeSuccess,
		ResponseCode: cb.ResponseCode,
		Message:      vnpay.ResponseMessage(cb.ResponseCode),
		Transaction:  settled,
	}
}

func (s *service) fail(ctx context.Context, txn *models.Transaction, cb vnpay.Callback) Outcome {
	message := vnpay.ResponseMessage(cb.ResponseCode)
	updates := gatewayUpdates(cb)
	updates["status"] = enums.TransactionStatusFailed
	updates["completed_at"] = s.now()
	updates["error_code"] = cb.ResponseCode
	updates["error_message"] = message

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).Transition(ctx, txn.ID, enums.TransactionStatusPending, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail transaction")
		}
		if !ok {
			return errAlreadyResolved
		}
		return nil
	})
	if err != nil {
		return s.afterConflict(ctx, txn, cb, err)
	}

	failed := s.reload(ctx, txn)
	s.notify(ctx, enums.NotificationTypePaymentFailed, failed, nil, map[string]any{
		"transactionId": txn.TransactionRef,
		"responseCode":  cb.ResponseCode,
		"reason":        message,
	})
	return Outcome{
		Kind:         OutcomeFailed,
		ResponseCode: cb.ResponseCode,
		Message:      message,
		Transaction:  failed,
	}
}

func (s *service) afterConflict(ctx context.Context, txn *models.Transaction, cb vnpay.Callback, err error) Outcome {
	if errors.Is(err, errAlreadyResolved) {
		return Outcome{
			Kind:         OutcomeAlreadyProcessed,
			ResponseCode: cb.ResponseCode,
			Transaction:  s.reload(ctx, txn),
			Err:          pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "transaction already processed"),
		}
	}
	return Outcome{Kind: OutcomeError, ResponseCode: cb.ResponseCode, Transaction: txn, Err: err}
}

func (s *service) reload(ctx context.Context, txn *models.Transaction) *models.Transaction {
	fresh, err := s.repo.FindByID(ctx, txn.ID)
	if err != nil {
		s.warn(ctx, "reload transaction failed", txn, err)
		return txn
	}
	return fresh
}

func gatewayUpdates(cb vnpay.Callback) map[string]any {
	return map[string]any{
		"gateway_txn_no": optional(cb.TransactionNo),
		"bank_code":      optional(cb.BankCode),
		"card_type":      optional(cb.CardType),
		"pay_date":       optional(cb.PayDate),
		"response_code":  optional(cb.ResponseCode),
		"secure_hash":    optional(cb.SecureHash),
	}
}

// ProcessRefund records a refund against a successful transaction and flags
// the order as refunded. Stock is not touched.
func (s *service) ProcessRefund(ctx context.Context, input RefundInput) (*models.Transaction, error) {
	txn, err := s.repo.FindByID(ctx, input.TransactionID)
	if err != nil {
		return nil, err
	}
	if txn.Status != enums.TransactionStatusSuccess {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only successful transactions can be refunded").
			WithDetails(map[string]any{"status": txn.Status})
	}
	amount := input.Amount
	if amount.IsZero() {
		amount = txn.Amount
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	if amount.GreaterThan(txn.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds transaction amount").
			WithDetails(map[string]any{"amount": txn.Amount.StringFixed(2)})
	}

	updates := map[string]any{
		"status":        enums.TransactionStatusRefunded,
		"refund_amount": amount,
		"refunded_at":   s.now(),
	}
	if reason := strings.TrimSpace(input.Reason); reason != "" {
		updates["refund_reason"] = reason
	}
	if input.ActorID != uuid.Nil {
		updates["refunded_by"] = input.ActorID
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).Transition(ctx, txn.ID, enums.TransactionStatusSuccess, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund transaction")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction was modified concurrently")
		}
		return s.orders.SetPaymentStatusTx(ctx, tx, txn.OrderID, enums.PaymentStatusRefunded)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncRefund()
	refunded := s.reload(ctx, txn)
	s.notify(ctx, enums.NotificationTypeRefundProcessed, refunded, nil, map[string]any{
		"transactionId": txn.TransactionRef,
		"amount":        amount.StringFixed(2),
		"reason":        input.Reason,
	})
	return refunded, nil
}

func (s *service) GetTransaction(ctx context.Context, id uuid.UUID, actor orders.Actor) (*models.Transaction, error) {
	txn, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && txn.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "transaction belongs to another user")
	}
	return txn, nil
}

func (s *service) ListForOrder(ctx context.Context, orderID uuid.UUID, actor orders.Actor) ([]models.Transaction, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && order.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return s.repo.ListForOrder(ctx, orderID)
}

// SweepPending resolves stale pending transactions. Gateway attempts are
// checked with querydr first; only attempts older than ExpireAfter that the
// gateway does not report as resolved are cancelled. An unanswered query
// leaves the attempt pending for the next run.
func (s *service) SweepPending(ctx context.Context, opts SweepOptions) (SweepResult, error) {
	opts = opts.withDefaults()
	now := s.now()

	rows, err := s.repo.ListPendingBefore(ctx, now.Add(-opts.StaleAfter), opts.Limit)
	if err != nil {
		return SweepResult{}, err
	}

	var (
		result SweepResult
		errs   error
	)
	for i := range rows {
		txn := &rows[i]
		result.Checked++

		if txn.Gateway == enums.PaymentGatewayVNPay && txn.GatewayRef != nil {
			cb, err := s.queryGateway(ctx, txn)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("query %s: %w", txn.TransactionRef, err))
				continue
			}
			if cb != nil {
				outcome := s.apply(ctx, txn, *cb, SourceQuery)
				s.observe(ctx, SourceQuery, outcome)
				switch outcome.Kind {
				case OutcomeSuccess:
					result.Settled++
				case OutcomeFailed:
					result.Failed++
				case OutcomeError, OutcomeAmountMismatch:
					errs = multierr.Append(errs, fmt.Errorf("settle %s: %w", txn.TransactionRef, outcome.Err))
				}
				continue
			}
		}

		if now.Sub(txn.InitiatedAt) < opts.ExpireAfter {
			continue
		}
		ok, err := s.repo.Transition(ctx, txn.ID, enums.TransactionStatusPending, map[string]any{
			"status":        enums.TransactionStatusCancelled,
			"completed_at":  now,
			"error_message": "Payment session expired",
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire %s: %w", txn.TransactionRef, err))
			continue
		}
		if ok {
			result.Expired++
		}
	}
	return result, errs
}

// queryGateway asks the gateway for the final state of txn. A nil callback
// with a nil error means the gateway has nothing final to report.
func (s *service) queryGateway(ctx context.Context, txn *models.Transaction) (*vnpay.Callback, error) {
	transactionDate := txn.InitiatedAt
	if txn.GatewayCreatedAt != nil {
		transactionDate = *txn.GatewayCreatedAt
	}

	started := time.Now()
	res, err := s.gateway.QueryTransaction(ctx, vnpay.QueryRequest{
		TxnRef:          *txn.GatewayRef,
		OrderInfo:       deref(txn.OrderInfo),
		TransactionDate: transactionDate,
		IPAddress:       deref(txn.IPAddress),
	})
	s.metrics.ObserveGatewayCall(string(SourceQuery), time.Since(started))
	if err != nil {
		return nil, err
	}
	if !vnpay.IsSuccess(res.ResponseCode) || res.Pending() {
		return nil, nil
	}
	cb, err := res.Callback()
	if err != nil {
		return nil, err
	}
	return &cb, nil
}

func (s *service) observe(ctx context.Context, source Source, outcome Outcome) {
	s.metrics.ObserveReconcile(string(source), string(outcome.Kind))
	if s.logg == nil {
		return
	}
	fields := map[string]any{
		"source":        string(source),
		"outcome":       string(outcome.Kind),
		"response_code": outcome.ResponseCode,
	}
	if outcome.Transaction != nil {
		fields["transaction_ref"] = outcome.Transaction.TransactionRef
		fields["order_id"] = outcome.Transaction.OrderID.String()
	}
	logCtx := s.logg.WithFields(ctx, fields)
	switch outcome.Kind {
	case OutcomeError:
		s.logg.Error(logCtx, "payment reconciliation failed", outcome.Err)
	case OutcomeInvalidSignature, OutcomeAmountMismatch:
		s.logg.Warn(logCtx, "payment callback rejected")
	default:
		s.logg.Info(logCtx, "payment callback reconciled")
	}
}

func (s *service) warn(ctx context.Context, msg string, txn *models.Transaction, err error) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"transaction_ref": txn.TransactionRef,
		"order_id":        txn.OrderID.String(),
		"error":           err.Error(),
	})
	s.logg.Warn(logCtx, msg)
}

func (s *service) notify(ctx context.Context, eventType enums.NotificationType, txn *models.Transaction, order *models.Order, extra map[string]any) {
	orderID := txn.OrderID
	userID := txn.UserID
	event := notifications.Event{
		Type:       eventType,
		OrderID:    &orderID,
		UserID:     &userID,
		Extra:      extra,
		OccurredAt: s.now(),
	}
	if order != nil {
		event.OrderNumber = order.OrderNumber
	}
	s.notifier.Notify(ctx, event)
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
