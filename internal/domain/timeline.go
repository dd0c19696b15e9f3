package domain

import "time"

// TimelineEvent описывает событие в жизненном цикле заказа.
type TimelineEvent struct {
	OrderID  string
	Type     string
	Reason   string
	Occurred time.Time
}

// TimelineFromEvent строит запись таймлайна из доменного события.
func TimelineFromEvent(event Event) TimelineEvent {
	reason := string(event.Status)
	switch {
	case event.Type == EventOrderPaymentProcessed:
		reason = "payment " + string(event.PaymentStatus)
	case event.PreviousStatus != "":
		reason = string(event.PreviousStatus) + " -> " + string(event.Status)
	}
	return TimelineEvent{
		OrderID:  event.OrderID,
		Type:     string(event.Type),
		Reason:   reason,
		Occurred: event.OccurredAt,
	}
}
