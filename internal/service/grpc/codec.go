package grpcsvc

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// fields — чтение полей запроса с проверкой типов. Вложенные объекты делят
// с родителем первую найденную ошибку.
type fields struct {
	values map[string]*structpb.Value
	errp   *error
}

func requestFields(req *structpb.Struct) *fields {
	f := &fields{values: req.GetFields(), errp: new(error)}
	if req == nil {
		f.fail("request is required")
	}
	return f
}

func (f *fields) child(values map[string]*structpb.Value) *fields {
	return &fields{values: values, errp: f.errp}
}

func (f *fields) err() error {
	return *f.errp
}

func (f *fields) fail(format string, args ...any) {
	if *f.errp == nil {
		*f.errp = status.Errorf(codes.InvalidArgument, format, args...)
	}
}

func (f *fields) value(name string) (*structpb.Value, bool) {
	v, ok := f.values[name]
	if !ok {
		return nil, false
	}
	if _, null := v.GetKind().(*structpb.Value_NullValue); null {
		return nil, false
	}
	return v, true
}

func (f *fields) str(name string) string {
	v, ok := f.value(name)
	if !ok {
		return ""
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		f.fail("%s must be a string", name)
		return ""
	}
	return strings.TrimSpace(s.StringValue)
}

func (f *fields) requiredStr(name string) string {
	s := f.str(name)
	if s == "" {
		f.fail("%s is required", name)
	}
	return s
}

func (f *fields) int(name string) int64 {
	v, ok := f.value(name)
	if !ok {
		return 0
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > 1<<53 {
		f.fail("%s must be an integer", name)
		return 0
	}
	return int64(n.NumberValue)
}

func (f *fields) requiredInt(name string) int64 {
	if _, ok := f.value(name); !ok {
		f.fail("%s is required", name)
		return 0
	}
	return f.int(name)
}

func (f *fields) bool(name string) bool {
	v, ok := f.value(name)
	if !ok {
		return false
	}
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		f.fail("%s must be a boolean", name)
		return false
	}
	return b.BoolValue
}

// decimal принимает сумму строкой ("10.50") или числом.
func (f *fields) decimal(name string) *decimal.Decimal {
	v, ok := f.value(name)
	if !ok {
		return nil
	}
	var (
		d   decimal.Decimal
		err error
	)
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err = decimal.NewFromString(strings.TrimSpace(kind.StringValue))
	case *structpb.Value_NumberValue:
		d = decimal.NewFromFloat(kind.NumberValue)
	default:
		err = fmt.Errorf("unsupported type")
	}
	if err != nil {
		f.fail("%s must be a decimal amount", name)
		return nil
	}
	return &d
}

func (f *fields) time(name string) time.Time {
	s := f.str(name)
	if s == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		f.fail("%s must be an RFC 3339 timestamp", name)
		return time.Time{}
	}
	return ts
}

func (f *fields) object(name string) *fields {
	v, ok := f.value(name)
	if !ok {
		return f.child(nil)
	}
	s, ok := v.GetKind().(*structpb.Value_StructValue)
	if !ok {
		f.fail("%s must be an object", name)
		return f.child(nil)
	}
	return f.child(s.StructValue.GetFields())
}

func (f *fields) list(name string) []*fields {
	v, ok := f.value(name)
	if !ok {
		return nil
	}
	l, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		f.fail("%s must be a list", name)
		return nil
	}
	result := make([]*fields, 0, len(l.ListValue.GetValues()))
	for idx, item := range l.ListValue.GetValues() {
		s, ok := item.GetKind().(*structpb.Value_StructValue)
		if !ok {
			f.fail("%s[%d] must be an object", name, idx)
			return nil
		}
		result = append(result, f.child(s.StructValue.GetFields()))
	}
	return result
}

func encode(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func moneyValue(m domain.Money) map[string]any {
	return map[string]any{
		"amount":   m.Amount().StringFixed(2),
		"currency": m.Currency(),
	}
}

func addressValue(a domain.Address) map[string]any {
	return map[string]any{
		"street":      a.Street,
		"city":        a.City,
		"state":       a.State,
		"postal_code": a.PostalCode,
		"country":     a.Country,
	}
}

func orderValue(order *domain.Order) map[string]any {
	s := order.Snapshot()
	items := make([]any, 0, len(s.Items))
	for _, item := range s.Items {
		items = append(items, map[string]any{
			"product_id":   item.ProductID,
			"product_name": item.ProductName,
			"unit_price":   moneyValue(item.UnitPrice),
			"quantity":     item.Quantity,
			"line_total":   moneyValue(item.LineTotal),
		})
	}
	return map[string]any{
		"id":                  s.ID,
		"order_number":        s.OrderNumber,
		"customer_id":         s.CustomerID,
		"status":              string(s.Status),
		"payment_status":      string(s.PaymentStatus),
		"total_amount":        moneyValue(s.TotalAmount),
		"shipping_address":    addressValue(s.ShippingAddress),
		"notes":               s.Notes,
		"items":               items,
		"inventory_committed": s.InventoryCommitted,
		"version":             s.Version,
		"created_at":          s.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":          s.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func productValue(p domain.Product) map[string]any {
	return map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"price":       moneyValue(p.Price),
		"inventory":   p.Inventory,
		"category_id": p.CategoryID,
		"is_active":   p.IsActive,
	}
}

func timelineValue(events []domain.TimelineEvent) []any {
	result := make([]any, 0, len(events))
	for _, event := range events {
		result = append(result, map[string]any{
			"type":      event.Type,
			"reason":    event.Reason,
			"unix_time": event.Occurred.Unix(),
		})
	}
	return result
}
