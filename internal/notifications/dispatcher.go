package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/nhannt26/e-commerce-website-v3/pkg/logger"
)

const defaultDeliveryTimeout = 10 * time.Second

// Notifier accepts lifecycle events. Notify never blocks on delivery and never fails.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Sink delivers one event to one channel.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event Event) error
}

// Dispatcher fans events out to every sink on its own goroutine.
type Dispatcher struct {
	sinks   []Sink
	logg    *logger.Logger
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewDispatcher builds a dispatcher over sinks. Nil sinks are skipped.
func NewDispatcher(logg *logger.Logger, timeout time.Duration, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	active := make([]Sink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			active = append(active, sink)
		}
	}
	return &Dispatcher{sinks: active, logg: logg, timeout: timeout, now: time.Now}
}

func (d *Dispatcher) Notify(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = d.now().UTC()
	}
	base := context.WithoutCancel(ctx)
	for _, sink := range d.sinks {
		d.wg.Add(1)
		go func(sink Sink) {
			defer d.wg.Done()
			deliverCtx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()
			if err := sink.Deliver(deliverCtx, event); err != nil && d.logg != nil {
				logCtx := d.logg.WithFields(deliverCtx, map[string]any{
					"sink":       sink.Name(),
					"event_type": string(event.Type),
					"error":      err.Error(),
				})
				d.logg.Warn(logCtx, "notification delivery failed")
			}
		}(sink)
	}
}

// Wait blocks until every in-flight delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

type discard struct{}

func (discard) Notify(context.Context, Event) {}

// Discard drops every event.
var Discard Notifier = discard{}
