package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency используется, когда валюта не указана явно.
const DefaultCurrency = "USD"

// Money — неизменяемая денежная сумма в конкретной валюте.
// Все операции возвращают новое значение.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// NewMoney создаёт сумму; пустая валюта заменяется на DefaultCurrency.
func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{amount: amount, currency: normalizeCurrency(currency)}
}

// ZeroMoney возвращает нулевую сумму в указанной валюте.
func ZeroMoney(currency string) Money {
	return NewMoney(decimal.Zero, currency)
}

// ParseMoney разбирает строковую сумму вида "10.50".
func ParseMoney(amount, currency string) (Money, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, fmt.Errorf("%w: parse amount %q: %v", ErrInvalidArgument, amount, err)
	}
	return NewMoney(value, currency), nil
}

func normalizeCurrency(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return DefaultCurrency
	}
	return currency
}

// Amount возвращает числовое значение суммы.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency возвращает код валюты.
func (m Money) Currency() string {
	if m.currency == "" {
		return DefaultCurrency
	}
	return m.currency
}

// Add складывает суммы одной валюты.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency() != other.Currency() {
		return Money{}, currencyMismatch(m, other)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.Currency()}, nil
}

// Mul умножает сумму на целое количество.
func (m Money) Mul(quantity int) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(quantity))), currency: m.Currency()}
}

// Equal сравнивает суммы по значению: 10.0 USD и 10.00 USD равны.
func (m Money) Equal(other Money) bool {
	return m.Currency() == other.Currency() && m.amount.Equal(other.amount)
}

// IsPositive сообщает, что сумма строго больше нуля.
func (m Money) IsPositive() bool { return m.amount.IsPositive() }

// IsZero сообщает, что сумма равна нулю.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// String форматирует сумму как "20.00 USD".
func (m Money) String() string {
	return m.amount.StringFixed(2) + " " + m.Currency()
}

type moneyJSON struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// MarshalJSON сериализует сумму как {"amount":"10.5","currency":"USD"}.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount, Currency: m.Currency()})
}

// UnmarshalJSON восстанавливает сумму из JSON-снимка.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = NewMoney(raw.Amount, raw.Currency)
	return nil
}

func currencyMismatch(a, b Money) error {
	return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, a.Currency(), b.Currency())
}
