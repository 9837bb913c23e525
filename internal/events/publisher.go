package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/wecr8/damp-backend/pkg/config"
	"github.com/wecr8/damp-backend/pkg/enums"
	"github.com/wecr8/damp-backend/pkg/logger"
	"github.com/wecr8/damp-backend/pkg/metrics"
)

const defaultPublishTimeout = 5 * time.Second

// Publisher delivers an envelope to a transport.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type topicPublisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}

// PubSubPublisher publishes envelopes to the events topic.
type PubSubPublisher struct {
	topic topicPublisher
}

func NewPubSubPublisher(p *gcppubsub.Publisher) *PubSubPublisher {
	if p == nil {
		return nil
	}
	return &PubSubPublisher{topic: &gcpPublisher{Publisher: p}}
}

func (p *PubSubPublisher) Publish(ctx context.Context, env Envelope) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub publisher not configured")
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	result := p.topic.Publish(publishCtx, &gcppubsub.Message{Data: data, Attributes: env.Attributes()})
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	_, err = result.Get(publishCtx)
	return err
}

type amqpPublisher interface {
	Publish(ctx context.Context, key, messageID string, body []byte, headers map[string]string) error
}

// AMQPPublisher routes envelopes to a topic exchange keyed by event type.
type AMQPPublisher struct {
	client amqpPublisher
}

func NewAMQPPublisher(client amqpPublisher) *AMQPPublisher {
	return &AMQPPublisher{client: client}
}

func (p *AMQPPublisher) Publish(ctx context.Context, env Envelope) error {
	if p == nil || p.client == nil {
		return errors.New("amqp publisher not configured")
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return p.client.Publish(ctx, string(env.EventType), env.EventID, data, env.Attributes())
}

// NoopPublisher drops events.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Envelope) error { return nil }

// Emitter is what services call. Publishing is best effort: failures are logged
// and counted, never returned.
type Emitter struct {
	publisher Publisher
	transport string
	logg      *logger.Logger
	metrics   *metrics.DomainMetrics
	now       func() time.Time
}

func NewEmitter(publisher Publisher, transport string, logg *logger.Logger, m *metrics.DomainMetrics) *Emitter {
	if publisher == nil {
		publisher = NoopPublisher{}
		transport = config.TransportNone
	}
	return &Emitter{publisher: publisher, transport: transport, logg: logg, metrics: m, now: time.Now}
}

func (e *Emitter) Emit(ctx context.Context, eventType enums.EventType, aggregateType, aggregateID string, data any) {
	if e == nil {
		return
	}
	env, err := NewEnvelope(eventType, aggregateType, aggregateID, data, e.now())
	if err != nil {
		e.fail(ctx, eventType, "", err)
		return
	}
	if err := e.publisher.Publish(ctx, env); err != nil {
		e.fail(ctx, eventType, env.EventID, err)
		return
	}
	e.metrics.EventPublished(e.transport, string(eventType), "ok")
	if e.logg != nil {
		e.logg.Debug(e.logg.WithFields(ctx, map[string]any{
			"event_id":   env.EventID,
			"event_type": eventType,
			"transport":  e.transport,
		}), "event.published")
	}
}

func (e *Emitter) fail(ctx context.Context, eventType enums.EventType, eventID string, err error) {
	e.metrics.EventPublished(e.transport, string(eventType), "error")
	if e.logg == nil {
		return
	}
	ctx = e.logg.WithFields(ctx, map[string]any{
		"event_id":   eventID,
		"event_type": eventType,
		"transport":  e.transport,
	})
	e.logg.Error(ctx, "event.publish_failed", err)
}
