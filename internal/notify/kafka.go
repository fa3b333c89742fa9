package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaNotifier publishes events to a Kafka topic, keyed by claim id so a
// claim's transitions stay ordered within a partition. Produces are
// asynchronous; delivery failures are counted and logged, nothing more.
type KafkaNotifier struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger

	// onFailure is invoked on delivery errors; wired to a metrics counter.
	onFailure func()
}

// NewKafkaNotifier connects a producer to the given brokers.
func NewKafkaNotifier(brokers []string, topic string, logger *slog.Logger, onFailure func()) (*KafkaNotifier, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.RecordRetries(3),
	)
	if err != nil {
		return nil, err
	}
	if onFailure == nil {
		onFailure = func() {}
	}
	return &KafkaNotifier{client: client, topic: topic, logger: logger, onFailure: onFailure}, nil
}

func (n *KafkaNotifier) Publish(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to encode notification",
			"type", string(event.Type),
			"error", err,
		)
		n.onFailure()
		return
	}

	record := &kgo.Record{
		Topic: n.topic,
		Key:   []byte(event.ClaimID),
		Value: payload,
	}
	// Detach from the request context: the HTTP request finishing must not
	// cancel an in-flight produce.
	n.client.Produce(context.WithoutCancel(ctx), record, func(_ *kgo.Record, err error) {
		if err != nil {
			n.logger.Warn("notification publish failed",
				"type", string(event.Type),
				"claim_id", event.ClaimID,
				"error", err,
			)
			n.onFailure()
		}
	})
}

// Close flushes pending produces and releases the client.
func (n *KafkaNotifier) Close(ctx context.Context) error {
	if err := n.client.Flush(ctx); err != nil {
		return err
	}
	n.client.Close()
	return nil
}
