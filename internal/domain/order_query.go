package domain

import (
	"sort"
	"strings"
	"time"
)

// OrderSortKey задаёт порядок выдачи списка заказов.
type OrderSortKey string

const (
	// SortByCreated — по дате создания (по умолчанию, от новых к старым).
	SortByCreated OrderSortKey = "created"
	// SortByTotal — по сумме заказа.
	SortByTotal OrderSortKey = "total"
	// SortByStatus — по статусу в порядке жизненного цикла.
	SortByStatus OrderSortKey = "status"
)

const (
	// DefaultPageSize — размер страницы, если он не задан.
	DefaultPageSize = 10
	// MaxPageSize ограничивает размер страницы сверху.
	MaxPageSize = 100
)

// OrderFilter описывает выборку заказов. Нулевые значения не фильтруют.
type OrderFilter struct {
	CustomerID    int64
	Status        OrderStatus
	PaymentStatus PaymentStatus
	From          time.Time
	To            time.Time
	OrderNumber   string
	SortBy        OrderSortKey
	Ascending     bool
	PageNumber    int
	PageSize      int
}

// Normalize подставляет значения по умолчанию для сортировки и пагинации.
func (f OrderFilter) Normalize() OrderFilter {
	switch f.SortBy {
	case SortByCreated, SortByTotal, SortByStatus:
	default:
		f.SortBy = SortByCreated
	}
	if f.PageNumber < 1 {
		f.PageNumber = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

// Offset возвращает смещение для текущей страницы.
func (f OrderFilter) Offset() int {
	return (f.PageNumber - 1) * f.PageSize
}

// Matches проверяет снимок заказа на соответствие фильтру.
func (f OrderFilter) Matches(o OrderSnapshot) bool {
	if f.CustomerID != 0 && o.CustomerID != f.CustomerID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.PaymentStatus != "" && o.PaymentStatus != f.PaymentStatus {
		return false
	}
	if !f.From.IsZero() && o.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && o.CreatedAt.After(f.To) {
		return false
	}
	if f.OrderNumber != "" && !strings.Contains(strings.ToUpper(o.OrderNumber), strings.ToUpper(f.OrderNumber)) {
		return false
	}
	return true
}

// OrderPage — страница результатов выборки.
type OrderPage struct {
	Orders     []*Order
	TotalCount int
	PageNumber int
	PageSize   int
}

// TotalPages возвращает количество страниц.
func (p OrderPage) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return (p.TotalCount + p.PageSize - 1) / p.PageSize
}

// SortOrderSnapshots сортирует снимки согласно ключу фильтра.
// Без флага Ascending порядок убывающий.
func SortOrderSnapshots(orders []OrderSnapshot, key OrderSortKey, ascending bool) {
	less := orderComparator(key)
	sort.SliceStable(orders, func(i, j int) bool {
		if ascending {
			return less(orders[i], orders[j])
		}
		return less(orders[j], orders[i])
	})
}

func orderComparator(key OrderSortKey) func(a, b OrderSnapshot) bool {
	switch key {
	case SortByTotal:
		return func(a, b OrderSnapshot) bool {
			return a.TotalAmount.Amount().LessThan(b.TotalAmount.Amount())
		}
	case SortByStatus:
		return func(a, b OrderSnapshot) bool {
			return a.Status.rank() < b.Status.rank()
		}
	default:
		return func(a, b OrderSnapshot) bool {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
}
