package domain

import (
	"fmt"
	"strings"
)

// Address — адрес доставки. Встраивается в заказ по значению.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// NewAddress создаёт адрес и проверяет, что все поля заполнены.
func NewAddress(street, city, state, postalCode, country string) (Address, error) {
	addr := Address{
		Street:     strings.TrimSpace(street),
		City:       strings.TrimSpace(city),
		State:      strings.TrimSpace(state),
		PostalCode: strings.TrimSpace(postalCode),
		Country:    strings.TrimSpace(country),
	}
	if err := addr.Validate(); err != nil {
		return Address{}, err
	}
	return addr, nil
}

// Validate возвращает ErrInvalidArgument с перечнем незаполненных полей.
func (a Address) Validate() error {
	var missing []string
	for _, field := range []struct {
		name  string
		value string
	}{
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: address fields required: %s", ErrInvalidArgument, strings.Join(missing, ", "))
	}
	return nil
}

// String возвращает адрес одной строкой.
func (a Address) String() string {
	return fmt.Sprintf("%s, %s, %s %s, %s", a.Street, a.City, a.State, a.PostalCode, a.Country)
}
