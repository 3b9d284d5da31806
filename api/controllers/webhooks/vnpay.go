package webhooks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/nhannt26/e-commerce-website-v3/internal/payments"
	"github.com/nhannt26/e-commerce-website-v3/pkg/logger"
)

// Reconciler applies a signed gateway callback.
type Reconciler interface {
	Reconcile(ctx context.Context, params map[string]string, source payments.Source) payments.Outcome
}

type ipnAck struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// VNPayIPN is the server-to-server notification endpoint. It always answers
// 200 with an acknowledgement so the gateway stops retrying; the outcome
// lives in RspCode.
func VNPayIPN(svc Reconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeAck(w, ipnAck{RspCode: "99", Message: "System error"})
			return
		}

		outcome := svc.Reconcile(r.Context(), callbackParams(r), payments.SourceIPN)
		logOutcome(r, logg, "vnpay.ipn", outcome)
		writeAck(w, ipnAck{RspCode: outcome.AckCode(), Message: outcome.AckMessage()})
	}
}

// VNPayReturn handles the browser redirect back from the gateway and sends
// the customer on to the storefront result page.
func VNPayReturn(svc Reconciler, frontendURL string, logg *logger.Logger) http.HandlerFunc {
	base := strings.TrimRight(frontendURL, "/")
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			http.Redirect(w, r, failureURL(base, "system_error"), http.StatusFound)
			return
		}

		outcome := svc.Reconcile(r.Context(), callbackParams(r), payments.SourceReturn)
		logOutcome(r, logg, "vnpay.return", outcome)

		if outcome.Paid() && outcome.Transaction != nil {
			http.Redirect(w, r, base+"/payment/success?orderId="+url.QueryEscape(outcome.Transaction.OrderID.String()), http.StatusFound)
			return
		}
		http.Redirect(w, r, failureURL(base, outcome.FailureReason()), http.StatusFound)
	}
}

func failureURL(base, reason string) string {
	return base + "/payment/failed?error=" + url.QueryEscape(reason)
}

func callbackParams(r *http.Request) map[string]string {
	query := r.URL.Query()
	params := make(map[string]string, len(query))
	for key, values := range query {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}

func logOutcome(r *http.Request, logg *logger.Logger, msg string, outcome payments.Outcome) {
	if logg == nil {
		return
	}
	fields := map[string]any{
		"outcome":       string(outcome.Kind),
		"response_code": outcome.ResponseCode,
		"ack_code":      outcome.AckCode(),
	}
	if outcome.Transaction != nil {
		fields["transaction_id"] = outcome.Transaction.TransactionRef
		fields["order_id"] = outcome.Transaction.OrderID.String()
	}
	ctx := logg.WithFields(r.Context(), fields)
	switch outcome.Kind {
	case payments.OutcomeSuccess, payments.OutcomeFailed, payments.OutcomeAlreadyProcessed:
		logg.Info(ctx, msg)
	case payments.OutcomeError:
		logg.Error(ctx, msg, outcome.Err)
	default:
		logg.Warn(ctx, msg)
	}
}

func writeAck(w http.ResponseWriter, ack ipnAck) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(ack)
}
