package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation — нарушение бизнес-правил при проверке заказа.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState — недопустимый переход жизненного цикла или изменение позиций не в Pending.
	ErrInvalidState = errors.New("invalid order state")
	// ErrInvalidArgument — некорректный входной параметр (количество, адрес, сумма).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound — общий признак отсутствующей сущности.
	ErrNotFound = errors.New("not found")
	// ErrPersistence — ошибка хранилища.
	ErrPersistence = errors.New("persistence failure")
	// ErrInfrastructure — ошибка внешнего сервиса (платёжный шлюз, брокер).
	ErrInfrastructure = errors.New("infrastructure failure")
	// ErrCurrencyMismatch — арифметика над суммами разных валют.
	ErrCurrencyMismatch = fmt.Errorf("%w: currency mismatch", ErrValidation)

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = fmt.Errorf("order %w", ErrNotFound)
	// ErrProductNotFound возвращается, если товар отсутствует в каталоге.
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	// ErrCustomerNotFound возвращается, если клиент не найден.
	ErrCustomerNotFound = fmt.Errorf("customer %w", ErrNotFound)
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrOrderAlreadyExists — заказ с таким ID или номером уже сохранён.
	ErrOrderAlreadyExists = errors.New("order already exists")
	// ErrInsufficientInventory — условное списание остатка не прошло.
	ErrInsufficientInventory = errors.New("insufficient inventory")
	// ErrPaymentNotAllowed — заказ не может быть оплачен в текущем состоянии.
	ErrPaymentNotAllowed = fmt.Errorf("%w: cannot process payment for this order", ErrValidation)
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

// StateError описывает недопустимую операцию для текущего статуса заказа.
type StateError struct {
	Current   OrderStatus
	Attempted OrderStatus
	Operation string
	Reason    string
}

func (e *StateError) Error() string {
	var b strings.Builder
	b.WriteString(ErrInvalidState.Error())
	b.WriteString(": cannot ")
	b.WriteString(e.Operation)
	if e.Attempted != "" && e.Attempted != e.Current {
		fmt.Fprintf(&b, " (%s -> %s)", e.Current, e.Attempted)
	} else {
		fmt.Fprintf(&b, " in status %s", e.Current)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// Is связывает StateError с ErrInvalidState.
func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}

// ValidationError собирает все нарушения, найденные при проверке заказа.
type ValidationError struct {
	Violations []string
}

// NewValidationError создаёт ошибку с одним или несколькими нарушениями.
func NewValidationError(violations ...string) *ValidationError {
	return &ValidationError{Violations: violations}
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + strings.Join(e.Violations, "; ")
}

// Is связывает ValidationError с ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// PersistenceError оборачивает ошибку хранилища признаком ErrPersistence.
func PersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
