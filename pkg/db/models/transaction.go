package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
)

// Transaction is one payment attempt against an order.
type Transaction struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	TransactionRef   string                  `gorm:"column:transaction_ref;not null;uniqueIndex"`
	OrderID          uuid.UUID               `gorm:"column:order_id;type:uuid;not null"`
	UserID           uuid.UUID               `gorm:"column:user_id;type:uuid;not null"`
	Gateway          enums.PaymentGateway    `gorm:"column:gateway;not null"`
	Amount           decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency         string                  `gorm:"column:currency;not null"`
	Status           enums.TransactionStatus `gorm:"column:status;not null"`
	GatewayRef       *string                 `gorm:"column:gateway_ref;uniqueIndex"`
	GatewayTxnNo     *string                 `gorm:"column:gateway_txn_no"`
	GatewayCreatedAt *time.Time              `gorm:"column:gateway_created_at"`
	BankCode         *string                 `gorm:"column:bank_code"`
	CardType         *string                 `gorm:"column:card_type"`
	OrderInfo        *string                 `gorm:"column:order_info"`
	PayDate          *string                 `gorm:"column:pay_date"`
	ResponseCode     *string                 `gorm:"column:response_code"`
	SecureHash       *string                 `gorm:"column:secure_hash"`
	IPAddress        *string                 `gorm:"column:ip_address"`
	UserAgent        *string                 `gorm:"column:user_agent"`
	InitiatedAt      time.Time               `gorm:"column:initiated_at;not null"`
	CompletedAt      *time.Time              `gorm:"column:completed_at"`
	ErrorCode        *string                 `gorm:"column:error_code"`
	ErrorMessage     *string                 `gorm:"column:error_message"`
	RefundAmount     *decimal.Decimal        `gorm:"column:refund_amount;type:numeric(12,2)"`
	RefundReason     *string                 `gorm:"column:refund_reason"`
	RefundedAt       *time.Time              `gorm:"column:refunded_at"`
	RefundedBy       *uuid.UUID              `gorm:"column:refunded_by;type:uuid"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
