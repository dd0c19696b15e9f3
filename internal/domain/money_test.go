package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoney_EqualityByValue(t *testing.T) {
	a := NewMoney(decimal.RequireFromString("10.0"), "usd")
	b := NewMoney(decimal.RequireFromString("10.00"), "USD")

	if !a.Equal(b) {
		t.Fatalf("expected %s == %s", a, b)
	}
	if a.Equal(NewMoney(decimal.RequireFromString("10.00"), "EUR")) {
		t.Fatal("different currencies must not be equal")
	}
	if got := a.String(); got != "10.00 USD" {
		t.Fatalf("unexpected string form: %s", got)
	}
}

func TestMoney_Arithmetic(t *testing.T) {
	price := NewMoney(decimal.RequireFromString("19.99"), "USD")

	line := price.Mul(3)
	if !line.Equal(NewMoney(decimal.RequireFromString("59.97"), "USD")) {
		t.Fatalf("unexpected product: %s", line)
	}

	sum, err := line.Add(price)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !sum.Equal(NewMoney(decimal.RequireFromString("79.96"), "USD")) {
		t.Fatalf("unexpected sum: %s", sum)
	}
	if !price.Equal(NewMoney(decimal.RequireFromString("19.99"), "USD")) {
		t.Fatal("operands must not be mutated")
	}
}

func TestMoney_AddRejectsCurrencyMismatch(t *testing.T) {
	_, err := ZeroMoney("USD").Add(ZeroMoney("EUR"))
	if !errors.Is(err, ErrCurrencyMismatch) || !errors.Is(err, ErrValidation) {
		t.Fatalf("expected currency mismatch validation error, got %v", err)
	}
}

func TestMoney_JSON(t *testing.T) {
	original := NewMoney(decimal.RequireFromString("12.50"), "")

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Money
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.Equal(original) || decoded.Currency() != DefaultCurrency {
		t.Fatalf("unexpected decoded value %s from %s", decoded, data)
	}
}

func TestParseMoney(t *testing.T) {
	if _, err := ParseMoney("abc", "USD"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	m, err := ParseMoney(" 3.10 ", "eur")
	if err != nil {
		t.Fatalf("ParseMoney: %v", err)
	}
	if m.Currency() != "EUR" || !m.Amount().Equal(decimal.RequireFromString("3.1")) {
		t.Fatalf("unexpected parsed value %s", m)
	}
}
