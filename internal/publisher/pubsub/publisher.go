// Package pubsub publishes run summaries to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel"

	"github.com/JakeFAU/guestpost-catalog/internal/publisher"
)

// Config names the destination topic.
type Config struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Publisher sends JSON summaries to one topic. Summary attributes carry the
// mode and run id so subscribers can filter without decoding.
type Publisher struct {
	topic *pubsub.Topic
}

// New wraps an existing topic handle.
func New(topic *pubsub.Topic) *Publisher {
	return &Publisher{topic: topic}
}

// Dial connects to cfg.ProjectID and returns a Publisher plus a function
// that flushes pending messages and closes the client.
func Dial(ctx context.Context, cfg Config) (*Publisher, func() error, error) {
	if cfg.ProjectID == "" || cfg.TopicName == "" {
		return nil, nil, errors.New("pubsub: project id and topic name are required")
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub: new client: %w", err)
	}
	topic := client.Topic(cfg.TopicName)
	closeFn := func() error {
		topic.Stop()
		return client.Close()
	}
	return New(topic), closeFn, nil
}

// Publish marshals summary and waits for the server to acknowledge it.
func (p *Publisher) Publish(ctx context.Context, summary publisher.RunSummary) (string, error) {
	if p.topic == nil {
		return "", errors.New("pubsub: topic is not configured")
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("marshal run summary: %w", err)
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"mode":   string(summary.Mode),
			"run_id": summary.RunID,
		},
	}
	otel.GetTextMapPropagator().Inject(ctx, attributeCarrier(msg.Attributes))

	id, err := p.topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish run summary: %w", err)
	}
	return id, nil
}

// attributeCarrier exposes message attributes to the otel propagator.
type attributeCarrier map[string]string

func (c attributeCarrier) Get(key string) string { return c[key] }

func (c attributeCarrier) Set(key, value string) { c[key] = value }

func (c attributeCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
