package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/mechstereo/internal/domain/reaction"
	"github.com/turtacn/mechstereo/internal/domain/stereo"
	"github.com/turtacn/mechstereo/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mechstereo/pkg/errors"
)

const (
	TopicComponentResult = "mechstereo.component.result"

	EventComponentSplit = "component.split"
	sourceService       = "mechstereo"
)

// EventEnvelope standardizes event messages.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	RunID         string          `json:"run_id"`
	Payload       json.RawMessage `json:"payload"`
}

// ComponentPayload is the body of a component.split event.
type ComponentPayload struct {
	Formula string     `json:"formula"`
	Index   int        `json:"index"`
	Members []string   `json:"members"`
	Groups  [][]string `json:"groups"`
}

func NewEventEnvelope(eventType, runID string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        sourceService,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		RunID:         runID,
		Payload:       data,
	}, nil
}

// ToMessage encodes e for topic.  key selects the partition.
func (e *EventEnvelope) ToMessage(topic string, key string) (*ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	return &ProducerMessage{
		Topic: topic,
		Key:   []byte(key),
		Value: val,
		Headers: map[string]string{
			"event_id":       e.EventID,
			"event_type":     e.EventType,
			"run_id":         e.RunID,
			"source_service": e.Source,
			"schema_version": e.SchemaVersion,
		},
		Timestamp: e.Timestamp,
	}, nil
}

// ComponentPublisher publishes each split component as one event.  Messages
// of a run share the run ID as key so they land on one partition in order.
type ComponentPublisher struct {
	producer *Producer
	topic    string
	logger   logging.Logger
}

func NewComponentPublisher(p *Producer, logger logging.Logger) *ComponentPublisher {
	topic := p.config.Topic
	if topic == "" {
		topic = TopicComponentResult
	}
	return &ComponentPublisher{producer: p, topic: topic, logger: logging.OrNop(logger)}
}

func componentPayload(c stereo.ComponentResult) ComponentPayload {
	keys := func(rxns []reaction.Reaction) []string {
		out := make([]string, len(rxns))
		for i, r := range rxns {
			out[i] = r.Key()
		}
		return out
	}
	p := ComponentPayload{
		Formula: c.Formula,
		Index:   c.Index,
		Members: keys(c.Members),
		Groups:  make([][]string, len(c.Groups)),
	}
	for i, g := range c.Groups {
		p.Groups[i] = keys(g)
	}
	return p
}

func (p *ComponentPublisher) PublishComponent(ctx context.Context, runID string, c stereo.ComponentResult) error {
	env, err := NewEventEnvelope(EventComponentSplit, runID, componentPayload(c))
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(p.topic, runID)
	if err != nil {
		return err
	}
	msg.Headers["formula"] = c.Formula
	msg.Headers["component"] = strconv.Itoa(c.Index)
	if err := p.producer.Publish(ctx, msg); err != nil {
		return err
	}
	p.logger.Debug("component published",
		logging.String("run_id", runID),
		logging.String("formula", c.Formula),
		logging.Int("groups", len(c.Groups)))
	return nil
}
