package events

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// TransitionCounter counts expense lifecycle events by type.
type TransitionCounter struct {
	counter *prometheus.CounterVec
}

func NewTransitionCounter(reg prometheus.Registerer) (*TransitionCounter, error) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "expense_approval",
		Name:      "expense_events_total",
		Help:      "Expense lifecycle events by type.",
	}, []string{"event_type"})
	if err := reg.Register(counter); err != nil {
		return nil, err
	}
	return &TransitionCounter{counter: counter}, nil
}

func (c *TransitionCounter) Handle(_ context.Context, event Event) error {
	c.counter.WithLabelValues(event.EventType()).Inc()
	return nil
}

func (c *TransitionCounter) Collector() *prometheus.CounterVec {
	return c.counter
}
