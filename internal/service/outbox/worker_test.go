package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func enqueue(t *testing.T, repo domain.OutboxRepository, eventType string) domain.OutboxMessage {
	t.Helper()

	msg, err := repo.Enqueue(context.Background(), domain.OutboxMessage{
		AggregateType: domain.AggregateOrder,
		AggregateID:   "order-1",
		EventType:     eventType,
		Payload:       []byte(`{"status":"confirmed"}`),
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return msg
}

func pendingCount(t *testing.T, repo domain.OutboxRepository) int {
	t.Helper()

	stats, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	return stats.PendingCount
}

func TestWorker_ProcessOnce_MarkSent(t *testing.T) {
	t.Parallel()

	repo := memory.NewStore().Outbox()
	enqueue(t, repo, string(domain.EventOrderConfirmed))
	enqueue(t, repo, domain.OutboxEventInventoryCommitted)
	publisher := &stubPublisher{}

	worker := NewWorker(repo, publisher,
		WithRetryBaseDelay(0),
		WithMaxAttempts(3),
		WithMetrics(metrics.NewOutboxMetricsWithRegisterer(prometheus.NewRegistry())),
	)

	if sent := worker.ProcessOnce(context.Background()); sent != 2 {
		t.Fatalf("expected 2 sent messages, got %d", sent)
	}
	if got := publisher.calls(); got != 2 {
		t.Fatalf("expected 2 publish calls, got %d", got)
	}
	if got := pendingCount(t, repo); got != 0 {
		t.Fatalf("expected empty backlog, got %d", got)
	}
	if publisher.published[0].EventType != string(domain.EventOrderConfirmed) {
		t.Fatalf("messages must be published in enqueue order, got %s", publisher.published[0].EventType)
	}
}

func TestWorker_ProcessOnce_MarkFailedAndDLQAfterRetries(t *testing.T) {
	t.Parallel()

	repo := memory.NewStore().Outbox()
	msg := enqueue(t, repo, string(domain.EventOrderCancelled))
	publisher := &stubPublisher{err: errors.New("publish failed")}
	dlqPublisher := &stubPublisher{}

	worker := NewWorker(repo, publisher,
		WithDLQPublisher(dlqPublisher),
		WithRetryBaseDelay(0),
		WithMaxAttempts(3),
	)

	if sent := worker.ProcessOnce(context.Background()); sent != 0 {
		t.Fatalf("expected nothing sent, got %d", sent)
	}
	if got := publisher.calls(); got != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", got)
	}
	if got := dlqPublisher.calls(); got != 1 {
		t.Fatalf("expected 1 DLQ publish, got %d", got)
	}
	if got := pendingCount(t, repo); got != 0 {
		t.Fatalf("failed message must leave the pending backlog, got %d", got)
	}

	var body map[string]any
	if err := json.Unmarshal(dlqPublisher.published[0].Payload, &body); err != nil {
		t.Fatalf("dlq payload is not json: %v", err)
	}
	if body["outbox_id"] != msg.ID || body["publish_error"] == "" {
		t.Fatalf("unexpected dlq payload: %v", body)
	}
}

func TestWorker_ProcessOnce_SuccessAfterRetry(t *testing.T) {
	t.Parallel()

	repo := memory.NewStore().Outbox()
	enqueue(t, repo, string(domain.EventOrderPaymentProcessed))
	publisher := &stubPublisher{
		sequenceErrors: []error{errors.New("attempt 1"), errors.New("attempt 2"), nil},
	}

	worker := NewWorker(repo, publisher, WithRetryBaseDelay(time.Millisecond), WithMaxAttempts(3))

	if sent := worker.ProcessOnce(context.Background()); sent != 1 {
		t.Fatalf("expected 1 sent message, got %d", sent)
	}
	if got := publisher.calls(); got != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", got)
	}
}

func TestWorker_ProcessOnce_CancelledContext(t *testing.T) {
	t.Parallel()

	repo := memory.NewStore().Outbox()
	enqueue(t, repo, string(domain.EventOrderCreated))
	publisher := &stubPublisher{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if sent := NewWorker(repo, publisher).ProcessOnce(ctx); sent != 0 {
		t.Fatalf("expected nothing sent, got %d", sent)
	}
	if publisher.calls() != 0 {
		t.Fatal("publisher must not be called with cancelled context")
	}
	if got := pendingCount(t, repo); got != 1 {
		t.Fatalf("message must stay pending, got %d", got)
	}
}

func TestWorker_RetryBackoff(t *testing.T) {
	t.Parallel()

	worker := NewWorker(nil, nil, WithRetryBaseDelay(10*time.Millisecond))
	for attempt, want := range map[int]time.Duration{1: 10 * time.Millisecond, 2: 20 * time.Millisecond, 4: 80 * time.Millisecond} {
		if got := worker.retryBackoff(attempt); got != want {
			t.Fatalf("attempt %d: expected %v, got %v", attempt, want, got)
		}
	}

	if got := NewWorker(nil, nil, WithRetryBaseDelay(0)).retryBackoff(3); got != 0 {
		t.Fatalf("zero base delay must disable backoff, got %v", got)
	}
}

func TestWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	repo := memory.NewStore().Outbox()
	publisher := &stubPublisher{}

	worker := NewWorker(repo, publisher,
		WithPollInterval(5*time.Millisecond),
		WithRetryBaseDelay(0),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(15 * time.Millisecond)
	enqueue(t, repo, string(domain.EventOrderShipped))

	deadline := time.After(time.Second)
	for publisher.calls() == 0 {
		select {
		case <-deadline:
			t.Fatal("worker did not publish the enqueued message")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}

func TestWorker_Run_DisabledWithoutPublisher(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		NewWorker(memory.NewStore().Outbox(), nil).Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker without publisher must return immediately")
	}
}

func TestLogPublisher(t *testing.T) {
	t.Parallel()

	if err := NewLogPublisher(nil).Publish(domain.OutboxMessage{ID: "m-1", EventType: "OrderCreated"}); err != nil {
		t.Fatalf("log publisher must not fail: %v", err)
	}
}

type stubPublisher struct {
	mu             sync.Mutex
	err            error
	sequenceErrors []error
	callCount      int
	published      []domain.OutboxMessage
}

func (s *stubPublisher) Publish(msg domain.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	err := s.err
	if len(s.sequenceErrors) > 0 {
		err = s.sequenceErrors[0]
		s.sequenceErrors = s.sequenceErrors[1:]
	}
	if err == nil {
		s.published = append(s.published, msg)
	}
	return err
}

func (s *stubPublisher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

var _ domain.OutboxPublisher = (*stubPublisher)(nil)
