package enums

import "testing"

func TestStockStatusFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		available int
		threshold int
		want      StockStatus
	}{
		{0, 10, StockStatusOutOfStock},
		{-3, 10, StockStatusOutOfStock},
		{1, 10, StockStatusLowStock},
		{10, 10, StockStatusLowStock},
		{11, 10, StockStatusInStock},
		{5, 0, StockStatusInStock},
	}
	for _, tc := range cases {
		if got := StockStatusFor(tc.available, tc.threshold); got != tc.want {
			t.Fatalf("available=%d threshold=%d: expected %s got %s", tc.available, tc.threshold, tc.want, got)
		}
	}
}

func TestInitialPaymentStatus(t *testing.T) {
	t.Parallel()

	if got := PaymentMethodCOD.InitialPaymentStatus(); got != PaymentStatusUnpaid {
		t.Fatalf("cod should start unpaid, got %s", got)
	}
	for _, method := range []PaymentMethod{PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodBankTransfer, PaymentMethodEWallet} {
		if got := method.InitialPaymentStatus(); got != PaymentStatusPending {
			t.Fatalf("%s should start pending, got %s", method, got)
		}
	}
}
