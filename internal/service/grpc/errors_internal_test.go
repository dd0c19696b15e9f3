package grpcsvc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestToStatus(t *testing.T) {
	logger := log.New().WithField("component", "test")

	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"validation", domain.NewValidationError("Customer not found."), codes.InvalidArgument},
		{"argument", fmt.Errorf("%w: quantity", domain.ErrInvalidArgument), codes.InvalidArgument},
		{"state", &domain.StateError{Current: domain.OrderStatusPending, Operation: "ship"}, codes.FailedPrecondition},
		{"payment not allowed", domain.ErrPaymentNotAllowed, codes.FailedPrecondition},
		{"not found", domain.ErrOrderNotFound, codes.NotFound},
		{"version conflict", domain.ErrOrderVersionConflict, codes.Aborted},
		{"already exists", domain.ErrOrderAlreadyExists, codes.AlreadyExists},
		{"infrastructure", fmt.Errorf("%w: gateway", domain.ErrInfrastructure), codes.Unavailable},
		{"canceled", context.Canceled, codes.Canceled},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
		{"persistence", domain.PersistenceError("insert", errors.New("disk full")), codes.Internal},
		{"status passthrough", status.Error(codes.ResourceExhausted, "slow down"), codes.ResourceExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, status.Code(toStatus(logger, "test", tt.err)))
		})
	}

	assert.NoError(t, toStatus(logger, "test", nil))
	assert.Equal(t, "internal error", status.Convert(toStatus(logger, "test", errors.New("secret dsn"))).Message())
}

func TestFields(t *testing.T) {
	req, err := structpb.NewStruct(map[string]any{
		"id":      "abc",
		"count":   3,
		"ratio":   1.5,
		"price":   "10.50",
		"flag":    true,
		"nested":  map[string]any{"city": 7},
		"when":    "2024-01-02T03:04:05Z",
		"missing": nil,
	})
	assert.NoError(t, err)

	f := requestFields(req)
	assert.Equal(t, "abc", f.str("id"))
	assert.Equal(t, int64(3), f.int("count"))
	assert.True(t, f.bool("flag"))
	assert.Equal(t, "10.5", f.decimal("price").String())
	assert.Equal(t, 2024, f.time("when").Year())
	assert.Empty(t, f.str("missing"))
	assert.NoError(t, f.err())

	f.int("ratio")
	assert.Equal(t, codes.InvalidArgument, status.Code(f.err()))
	assert.Contains(t, f.err().Error(), "ratio must be an integer")

	nested := requestFields(req)
	nested.object("nested").str("city")
	assert.Contains(t, nested.err().Error(), "city must be a string")

	assert.Error(t, requestFields(nil).err())
}
