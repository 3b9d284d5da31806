package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nhannt26/e-commerce-website-v3/internal/orders"
	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
)

// CreatePaymentInput starts or retries a gateway payment.
type CreatePaymentInput struct {
	OrderID   uuid.UUID    `json:"orderId" validate:"required"`
	BankCode  string       `json:"bankCode" validate:"omitempty,max=20"`
	Locale    string       `json:"locale" validate:"omitempty,oneof=vn en"`
	Actor     orders.Actor `json:"-"`
	IPAddress string       `json:"-"`
	UserAgent string       `json:"-"`
}

// PaymentSession is returned to the client to redirect to the gateway.
type PaymentSession struct {
	PaymentURL    string              `json:"paymentUrl"`
	TransactionID string              `json:"transactionId"`
	Amount        decimal.Decimal     `json:"amount"`
	OrderNumber   string              `json:"orderNumber"`
	Transaction   *models.Transaction `json:"-"`
}

// RefundInput is the admin refund payload. A zero amount refunds in full.
type RefundInput struct {
	TransactionID uuid.UUID       `json:"-"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason" validate:"required,max=500"`
	ActorID       uuid.UUID       `json:"-"`
}

// SweepOptions bounds one pending-transaction sweep.
type SweepOptions struct {
	StaleAfter  time.Duration
	ExpireAfter time.Duration
	Limit       int
}

func (o SweepOptions) withDefaults() SweepOptions {
	if o.StaleAfter <= 0 {
		o.StaleAfter = 20 * time.Minute
	}
	if o.ExpireAfter <= 0 {
		o.ExpireAfter = 24 * time.Hour
	}
	if o.Limit <= 0 {
		o.Limit = 100
	}
	return o
}

// SweepResult counts what a sweep did.
type SweepResult struct {
	Checked int `json:"checked"`
	Settled int `json:"settled"`
	Failed  int `json:"failed"`
	Expired int `json:"expired"`
}

// TransactionDTO is the API shape of a payment attempt.
type TransactionDTO struct {
	ID            uuid.UUID               `json:"id"`
	TransactionID string                  `json:"transactionId"`
	OrderID       uuid.UUID               `json:"orderId"`
	UserID        uuid.UUID               `json:"userId"`
	Gateway       enums.PaymentGateway    `json:"gateway"`
	Amount        decimal.Decimal         `json:"amount"`
	Currency      string                  `json:"currency"`
	Status        enums.TransactionStatus `json:"status"`
	GatewayRef    *string                 `json:"gatewayRef,omitempty"`
	GatewayTxnNo  *string                 `json:"gatewayTransactionNo,omitempty"`
	BankCode      *string                 `json:"bankCode,omitempty"`
	CardType      *string                 `json:"cardType,omitempty"`
	ResponseCode  *string                 `json:"responseCode,omitempty"`
	ErrorCode     *string                 `json:"errorCode,omitempty"`
	ErrorMessage  *string                 `json:"errorMessage,omitempty"`
	RefundAmount  *decimal.Decimal        `json:"refundAmount,omitempty"`
	RefundReason  *string                 `json:"refundReason,omitempty"`
	RefundedAt    *time.Time              `json:"refundedAt,omitempty"`
	InitiatedAt   time.Time               `json:"initiatedAt"`
	CompletedAt   *time.Time              `json:"completedAt,omitempty"`
}

// TransactionFromModel maps a transaction row to its DTO.
func TransactionFromModel(txn *models.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:            txn.ID,
		TransactionID: txn.TransactionRef,
		OrderID:       txn.OrderID,
		UserID:        txn.UserID,
		Gateway:       txn.Gateway,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		Status:        txn.Status,
		GatewayRef:    txn.GatewayRef,
		GatewayTxnNo:  txn.GatewayTxnNo,
		BankCode:      txn.BankCode,
		CardType:      txn.CardType,
		ResponseCode:  txn.ResponseCode,
		ErrorCode:     txn.ErrorCode,
		ErrorMessage:  txn.ErrorMessage,
		RefundAmount:  txn.RefundAmount,
		RefundReason:  txn.RefundReason,
		RefundedAt:    txn.RefundedAt,
		InitiatedAt:   txn.InitiatedAt,
		CompletedAt:   txn.CompletedAt,
	}
}
