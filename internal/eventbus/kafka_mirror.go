package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/chatbuddy/core/internal/domain"
	"go.opentelemetry.io/otel"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"
	"github.com/twmb/franz-go/plugin/kotel"
)

// kafkaMirrorTopic is the topic every mirrored event is produced to; the
// external marketing-analytics collaborator consumes from here.
const kafkaMirrorTopic = "chatbuddy-events"

// KafkaMirror publishes a copy of every bus event to a Kafka/Redpanda topic
// for an external marketing-analytics collaborator. It is optional: a
// deployment without KAFKA_BROKERS configured never constructs one, and the
// in-process bus remains the only event transport.
type KafkaMirror struct {
	client *kgo.Client
}

// NewKafkaMirror dials brokers and returns a fire-and-forget producer. Mirror
// failures are logged, never fatal: the marketing-analytics feed is a
// best-effort side channel, not part of the core's delivery guarantee.
func NewKafkaMirror(brokers []string) (*KafkaMirror, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=eventbus.NewKafkaMirror: no brokers configured")
	}

	tracer := kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))
	kotelService := kotel.NewKotel(kotel.WithTracer(tracer))

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequestRetries(5),
		kgo.WithHooks(kotelService.Hooks()...),
	)
	if err != nil {
		return nil, fmt.Errorf("op=eventbus.NewKafkaMirror: %w", err)
	}

	if err := ensureTopic(client, kafkaMirrorTopic, 3, 1); err != nil {
		slog.Warn("kafka mirror topic creation failed, assuming it already exists",
			slog.String("topic", kafkaMirrorTopic), slog.Any("error", err))
	}

	return &KafkaMirror{client: client}, nil
}

// ensureTopic creates topic via the Kafka AdminClient API, tolerating the
// "topic already exists" error (code 36).
func ensureTopic(client *kgo.Client, topic string, partitions int32, replicationFactor int16) error {
	req := kmsg.NewCreateTopicsRequest()
	req.TimeoutMillis = 30000

	topicReq := kmsg.NewCreateTopicsRequestTopic()
	topicReq.Topic = topic
	topicReq.NumPartitions = partitions
	topicReq.ReplicationFactor = replicationFactor
	req.Topics = append(req.Topics, topicReq)

	resp, err := client.Request(context.Background(), &req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	createResp, ok := resp.(*kmsg.CreateTopicsResponse)
	if !ok {
		return fmt.Errorf("unexpected response type: %T", resp)
	}
	for _, t := range createResp.Topics {
		if t.ErrorCode != 0 && t.ErrorCode != 36 {
			msg := ""
			if t.ErrorMessage != nil {
				msg = *t.ErrorMessage
			}
			return fmt.Errorf("create topic %s: %s (code %d)", t.Topic, msg, t.ErrorCode)
		}
	}
	return nil
}

// Mirror publishes event asynchronously; production errors are logged, not
// returned, so Bus.Publish, which calls it, never waits on the broker.
func (m *KafkaMirror) Mirror(event domain.Event) {
	if m == nil || m.client == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("kafka mirror marshal failed", slog.String("type", string(event.Type)), slog.Any("error", err))
		return
	}

	record := &kgo.Record{
		Topic: kafkaMirrorTopic,
		Key:   []byte(event.ID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "source", Value: []byte(event.Source)},
		},
	}
	m.client.Produce(context.Background(), record, func(_ *kgo.Record, err error) {
		if err != nil {
			slog.Error("kafka mirror produce failed", slog.String("type", string(event.Type)), slog.Any("error", err))
		}
	})
}

// Close releases the underlying Kafka client.
func (m *KafkaMirror) Close() {
	if m != nil && m.client != nil {
		m.client.Close()
	}
}
