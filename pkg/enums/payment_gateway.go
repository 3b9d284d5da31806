package enums

import "fmt"

// PaymentGateway identifies the provider that processed a transaction.
type PaymentGateway string

const (
	PaymentGatewayVNPay        PaymentGateway = "vnpay"
	PaymentGatewayMoMo         PaymentGateway = "momo"
	PaymentGatewayZaloPay      PaymentGateway = "zalopay"
	PaymentGatewayBankTransfer PaymentGateway = "bank_transfer"
	PaymentGatewayCOD          PaymentGateway = "cod"
)

var validPaymentGateways = []PaymentGateway{
	PaymentGatewayVNPay,
	PaymentGatewayMoMo,
	PaymentGatewayZaloPay,
	PaymentGatewayBankTransfer,
	PaymentGatewayCOD,
}

func (p PaymentGateway) String() string {
	return string(p)
}

// IsValid reports whether the value is a known payment gateway.
func (p PaymentGateway) IsValid() bool {
	for _, candidate := range validPaymentGateways {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentGateway converts the raw string to PaymentGateway.
func ParsePaymentGateway(value string) (PaymentGateway, error) {
	for _, candidate := range validPaymentGateways {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment gateway %q", value)
}
