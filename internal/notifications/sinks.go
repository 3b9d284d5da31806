package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nhannt26/e-commerce-website-v3/pkg/logger"
)

// LogSink writes events to the structured log in place of an email provider.
type LogSink struct {
	logg *logger.Logger
}

// NewLogSink builds a log-backed sink.
func NewLogSink(logg *logger.Logger) *LogSink {
	return &LogSink{logg: logg}
}

func (s *LogSink) Name() string { return "email-log" }

func (s *LogSink) Deliver(ctx context.Context, event Event) error {
	if s.logg == nil {
		return nil
	}
	fields := map[string]any{"event_type": string(event.Type)}
	for key, value := range event.Attributes() {
		fields[key] = value
	}
	if event.OrderNumber != "" {
		fields["order_number"] = event.OrderNumber
	}
	for key, value := range event.Extra {
		fields["extra_"+key] = value
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "email notification: "+subjectFor(event))
	return nil
}

func subjectFor(event Event) string {
	label := strings.ReplaceAll(string(event.Type), "_", " ")
	if event.OrderNumber != "" {
		return fmt.Sprintf("%s (%s)", label, event.OrderNumber)
	}
	return label
}

type publisher interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
}

// PubSubSink publishes events as JSON messages to a topic.
type PubSubSink struct {
	client publisher
	topic  string
}

// NewPubSubSink builds a Pub/Sub-backed sink.
func NewPubSubSink(client publisher, topic string) (*PubSubSink, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("notification topic required")
	}
	return &PubSubSink{client: client, topic: topic}, nil
}

func (s *PubSubSink) Name() string { return "pubsub" }

func (s *PubSubSink) Deliver(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if _, err := s.client.Publish(ctx, s.topic, data, event.Attributes()); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
