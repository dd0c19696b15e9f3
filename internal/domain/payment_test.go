package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPayment_Lifecycle(t *testing.T) {
	order := NewOrder(1, Address{Street: "s", City: "c", State: "st", PostalCode: "p", Country: "US"}, "")
	if err := order.AddItem(5, "Lamp", NewMoney(decimal.NewFromInt(15), "USD"), 2); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	payment := NewPayment(order, "")
	if payment.Status != PaymentStatusPending || payment.Method != "card" {
		t.Fatalf("unexpected new payment: %+v", payment)
	}
	if !payment.Amount.Equal(order.TotalAmount()) {
		t.Fatalf("payment amount %s must equal order total %s", payment.Amount, order.TotalAmount())
	}

	payment.MarkFailed("card declined")
	if payment.Status != PaymentStatusFailed || payment.FailureReason != "card declined" {
		t.Fatalf("unexpected failed payment: %+v", payment)
	}

	payment.MarkPaid("tx-1")
	if payment.Status != PaymentStatusPaid || payment.TransactionID != "tx-1" || payment.FailureReason != "" {
		t.Fatalf("unexpected paid payment: %+v", payment)
	}
	if payment.ProcessedAt.IsZero() {
		t.Fatal("processed timestamp must be set")
	}
}
