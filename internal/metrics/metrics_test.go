package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()

	ch := make(chan prometheus.Metric, 64)
	c.Collect(ch)
	close(ch)

	var total float64
	for metric := range ch {
		var m dto.Metric
		if err := metric.Write(&m); err != nil {
			t.Fatalf("write metric: %v", err)
		}
		total += m.GetCounter().GetValue()
	}
	return total
}

func TestOrderMetrics_Counters(t *testing.T) {
	m := NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordOrderCreated()
	m.RecordOrderCreated()
	m.RecordTransition("confirmed")
	m.RecordPayment(PaymentResultPaid)
	m.RecordPayment(PaymentResultFailed)
	m.RecordInventoryRejection()
	m.RecordVersionRetry()
	m.RecordTimelineEvents(3)
	m.RecordOutboxEvents(2)

	if got := counterValue(t, m.ordersCreated); got != 2 {
		t.Fatalf("expected 2 created orders, got %v", got)
	}
	if got := counterValue(t, m.transitions); got != 1 {
		t.Fatalf("expected 1 transition, got %v", got)
	}
	if got := counterValue(t, m.payments); got != 2 {
		t.Fatalf("expected 2 payments, got %v", got)
	}
	if got := counterValue(t, m.inventoryRejections); got != 1 {
		t.Fatalf("expected 1 rejection, got %v", got)
	}
	if got := counterValue(t, m.timelineEvents); got != 3 {
		t.Fatalf("expected 3 timeline events, got %v", got)
	}
	if got := counterValue(t, m.outboxEvents); got != 2 {
		t.Fatalf("expected 2 outbox events, got %v", got)
	}
}

func TestOrderMetrics_StartOperation(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewOrderMetricsWithRegisterer(registry)

	done := m.StartOperation("create")
	time.Sleep(time.Millisecond)
	done()

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var found bool
	for _, family := range families {
		if family.GetName() != "oms_order_operation_duration_seconds" {
			continue
		}
		found = true
		if got := family.GetMetric()[0].GetHistogram().GetSampleCount(); got != 1 {
			t.Fatalf("expected 1 sample, got %d", got)
		}
	}
	if !found {
		t.Fatal("duration histogram not registered")
	}
}

func TestOrderMetrics_NilSafe(t *testing.T) {
	var m *OrderMetrics

	m.RecordOrderCreated()
	m.RecordPayment(PaymentResultError)
	m.StartOperation("noop")()
}

func TestRegister_ReturnsExistingCollector(t *testing.T) {
	registry := prometheus.NewRegistry()

	first := NewCacheMetricsWithRegisterer(registry)
	second := NewCacheMetricsWithRegisterer(registry)

	first.Hit()
	second.Hit()
	if got := counterValue(t, first.hits); got != 2 {
		t.Fatalf("expected shared counter value 2, got %v", got)
	}
}

func TestCacheMetrics(t *testing.T) {
	m := NewCacheMetricsWithRegisterer(prometheus.NewRegistry())

	m.Hit()
	m.Miss()
	m.Miss()
	m.Error("get")

	if got := counterValue(t, m.misses); got != 2 {
		t.Fatalf("expected 2 misses, got %v", got)
	}
	if got := counterValue(t, m.errors); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}

	var nilMetrics *CacheMetrics
	nilMetrics.Hit()
	nilMetrics.Error("set")
	nilMetrics.RecordPurge("ok", 1)
}

func TestCacheMetrics_RecordPurge(t *testing.T) {
	m := NewCacheMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordPurge("ok", 4)
	m.RecordPurge("ok", 1)
	m.RecordPurge("error", 0)

	if got := counterValue(t, m.purgeRuns); got != 3 {
		t.Fatalf("expected 3 purge runs, got %v", got)
	}
	if got := counterValue(t, m.purged); got != 5 {
		t.Fatalf("expected 5 purged entries, got %v", got)
	}
	var last dto.Metric
	if err := m.lastPurged.Write(&last); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	if got := last.GetGauge().GetValue(); got != 1 {
		t.Fatalf("expected last purged 1, got %v", got)
	}
}

func TestOutboxMetrics(t *testing.T) {
	m := NewOutboxMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordPublish(OutboxResultSent)
	m.RecordPublish(OutboxResultRetryError)
	m.RecordPublish(OutboxResultRetryError)

	if got := counterValue(t, m.publishAttempts); got != 3 {
		t.Fatalf("expected 3 publish attempts, got %v", got)
	}

	m.SetBacklog(4, time.Now().Add(-time.Minute))
	var g dto.Metric
	if err := m.pendingRecords.Write(&g); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	if g.GetGauge().GetValue() != 4 {
		t.Fatalf("expected pending 4, got %v", g.GetGauge().GetValue())
	}
	if err := m.oldestPendingAge.Write(&g); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	if g.GetGauge().GetValue() < 59 {
		t.Fatalf("unexpected oldest age %v", g.GetGauge().GetValue())
	}

	m.SetBacklog(0, time.Time{})
	if err := m.oldestPendingAge.Write(&g); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	if g.GetGauge().GetValue() != 0 {
		t.Fatalf("expected zero age for empty backlog, got %v", g.GetGauge().GetValue())
	}

	var nilMetrics *OutboxMetrics
	nilMetrics.RecordPublish(OutboxResultSent)
	nilMetrics.SetBacklog(1, time.Now())
}
