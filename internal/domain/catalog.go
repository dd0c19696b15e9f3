package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product — товар каталога с остатком на складе.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       Money     `json:"price"`
	Inventory   int       `json:"inventory"`
	CategoryID  int64     `json:"category_id"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate проверяет поля нового товара.
func (p Product) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: product name is required", ErrInvalidArgument)
	case p.Price.Amount().IsNegative():
		return fmt.Errorf("%w: product price must be non-negative", ErrInvalidArgument)
	case p.Inventory < 0:
		return fmt.Errorf("%w: inventory must be non-negative", ErrInvalidArgument)
	}
	return nil
}

// ProductQuery — фильтр выборки каталога. Пустые поля не ограничивают выборку.
type ProductQuery struct {
	Name       string
	CategoryID int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
}

// Matches проверяет товар на соответствие фильтру (для in-memory хранилища).
func (q ProductQuery) Matches(p Product) bool {
	if name := strings.TrimSpace(q.Name); name != "" &&
		!strings.Contains(strings.ToLower(p.Name), strings.ToLower(name)) {
		return false
	}
	if q.CategoryID != 0 && p.CategoryID != q.CategoryID {
		return false
	}
	if q.MinPrice != nil && p.Price.Amount().LessThan(*q.MinPrice) {
		return false
	}
	if q.MaxPrice != nil && p.Price.Amount().GreaterThan(*q.MaxPrice) {
		return false
	}
	return true
}

// Customer — покупатель.
type Customer struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
