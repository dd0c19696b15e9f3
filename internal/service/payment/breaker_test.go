package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestBreakerGatewayOpensAfterFailures(t *testing.T) {
	mock := NewMockGateway()
	mock.Err = errors.New("connection refused")

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	breaker := NewBreakerGateway(mock, 2, time.Minute, nil)
	breaker.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := breaker.Charge(ctx, testPayment())
		if !errors.Is(err, domain.ErrInfrastructure) {
			t.Fatalf("attempt %d: expected infrastructure error, got %v", i, err)
		}
	}
	if breaker.State() != CircuitOpen {
		t.Fatalf("expected open circuit, got %s", breaker.State())
	}

	if _, err := breaker.Charge(ctx, testPayment()); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if mock.Calls() != 2 {
		t.Fatalf("open circuit must not call gateway, calls=%d", mock.Calls())
	}

	now = now.Add(time.Minute)
	mock.Err = nil
	result, err := breaker.Charge(ctx, testPayment())
	if err != nil || !result.Success {
		t.Fatalf("half-open probe failed: %+v, %v", result, err)
	}
	if breaker.State() != CircuitClosed {
		t.Fatalf("expected closed circuit, got %s", breaker.State())
	}
}

func TestBreakerGatewayDeclineIsNotFailure(t *testing.T) {
	mock := NewMockGateway()
	mock.Decline = true
	breaker := NewBreakerGateway(mock, 1, time.Minute, nil)

	for i := 0; i < 3; i++ {
		result, err := breaker.Charge(context.Background(), testPayment())
		if err != nil {
			t.Fatalf("decline must not be an error: %v", err)
		}
		if result.Success {
			t.Fatal("expected declined result")
		}
	}
	if breaker.State() != CircuitClosed {
		t.Fatalf("declines must not open circuit, got %s", breaker.State())
	}
}

func TestBreakerGatewayHalfOpenFailureReopens(t *testing.T) {
	mock := NewMockGateway()
	mock.Err = errors.New("timeout")

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	breaker := NewBreakerGateway(mock, 1, time.Second, nil)
	breaker.now = func() time.Time { return now }

	_, _ = breaker.Charge(context.Background(), testPayment())
	now = now.Add(2 * time.Second)
	_, _ = breaker.Charge(context.Background(), testPayment())

	if breaker.State() != CircuitOpen {
		t.Fatalf("expected re-opened circuit, got %s", breaker.State())
	}
}

func TestBreakerGatewayCancellationIsNotFailure(t *testing.T) {
	mock := NewMockGateway()
	breaker := NewBreakerGateway(mock, 1, time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := breaker.Charge(ctx, testPayment()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if breaker.State() != CircuitClosed {
		t.Fatalf("cancellation must not open circuit, got %s", breaker.State())
	}
}
