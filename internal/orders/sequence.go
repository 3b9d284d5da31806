package orders

import (
	"context"
	"fmt"
	"time"
)

const orderCounterName = "orders"

type dailyCounter interface {
	NextDailySequence(ctx context.Context, name string, day time.Time, ttl time.Duration) (int64, error)
}

// CounterSequencer allocates order sequences from an atomic per-day counter.
type CounterSequencer struct {
	counter dailyCounter
	ttl     time.Duration
}

// NewCounterSequencer builds a sequencer over counter. Keys expire after ttl.
func NewCounterSequencer(counter dailyCounter, ttl time.Duration) (*CounterSequencer, error) {
	if counter == nil {
		return nil, fmt.Errorf("daily counter required")
	}
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &CounterSequencer{counter: counter, ttl: ttl}, nil
}

func (s *CounterSequencer) Next(ctx context.Context, day time.Time) (int64, error) {
	return s.counter.NextDailySequence(ctx, orderCounterName, day, s.ttl)
}

// FormatOrderNumber renders ORD + yyMMdd + the zero-padded sequence.
func FormatOrderNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("ORD%s%04d", day.Format("060102"), seq)
}
