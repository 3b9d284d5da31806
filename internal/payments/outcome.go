package payments

import (
	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
)

// Source names the channel a gateway result arrived through.
type Source string

const (
	SourceReturn Source = "return"
	SourceIPN    Source = "ipn"
	SourceQuery  Source = "querydr"
)

// OutcomeKind classifies a reconciliation attempt.
type OutcomeKind string

const (
	OutcomeSuccess          OutcomeKind = "success"
	OutcomeFailed           OutcomeKind = "failed"
	OutcomeInvalidSignature OutcomeKind = "invalid_signature"
	OutcomeNotFound         OutcomeKind = "not_found"
	OutcomeAlreadyProcessed OutcomeKind = "already_processed"
	OutcomeAmountMismatch   OutcomeKind = "amount_mismatch"
	OutcomeError            OutcomeKind = "error"
)

// Outcome is the result of reconciling one gateway callback. Reconcile never
// returns an error; failures are expressed as an outcome kind.
type Outcome struct {
	Kind         OutcomeKind
	ResponseCode string
	Message      string
	Transaction  *models.Transaction
	Err          error
}

// AckCode is the RspCode the IPN endpoint answers with.
func (o Outcome) AckCode() string {
	switch o.Kind {
	case OutcomeSuccess, OutcomeFailed:
		return "00"
	case OutcomeNotFound:
		return "01"
	case OutcomeAlreadyProcessed:
		return "02"
	case OutcomeAmountMismatch:
		return "04"
	case OutcomeInvalidSignature:
		return "97"
	default:
		return "99"
	}
}

// AckMessage is the Message paired with AckCode.
func (o Outcome) AckMessage() string {
	switch o.Kind {
	case OutcomeSuccess:
		return "Success"
	case OutcomeFailed:
		return "Transaction recorded as failed"
	case OutcomeNotFound:
		return "Transaction not found"
	case OutcomeAlreadyProcessed:
		return "Transaction already processed"
	case OutcomeAmountMismatch:
		return "Invalid amount"
	case OutcomeInvalidSignature:
		return "Invalid signature"
	default:
		return "System error"
	}
}

// Paid reports whether the transaction behind the outcome settled, including
// a replay of an earlier success.
func (o Outcome) Paid() bool {
	if o.Kind == OutcomeSuccess {
		return true
	}
	return o.Kind == OutcomeAlreadyProcessed && o.Transaction != nil && o.Transaction.Status == enums.TransactionStatusSuccess
}

// FailureReason is the error token used on the browser failure redirect.
func (o Outcome) FailureReason() string {
	switch o.Kind {
	case OutcomeInvalidSignature:
		return "invalid_hash"
	case OutcomeNotFound:
		return "transaction_not_found"
	case OutcomeAmountMismatch:
		return "invalid_amount"
	case OutcomeAlreadyProcessed:
		return "already_processed"
	case OutcomeFailed:
		if o.ResponseCode != "" {
			return o.ResponseCode
		}
		return "payment_failed"
	default:
		return "system_error"
	}
}
