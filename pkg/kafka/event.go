package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// SchemaVersion is stamped on every envelope. Bump it when a payload changes
// shape in a way consumers must notice.
const SchemaVersion = 1

// Envelope header and metadata keys.
const (
	HeaderEventType     = "event_type"
	HeaderSource        = "source"
	HeaderCorrelationID = "correlation_id"

	MetaActorID = "actor_id"
)

// Aggregate identifies the entity an event describes. Its ID is the
// partition key.
type Aggregate struct {
	Type string
	ID   string
}

// Event is the JSON envelope written as the message value.
type Event struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	AggregateID   string            `json:"aggregate_id"`
	AggregateType string            `json:"aggregate_type"`
	Version       int               `json:"version"`
	Timestamp     time.Time         `json:"timestamp"`
	Source        string            `json:"source"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Data          json.RawMessage   `json:"data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func NewEvent(eventType string, agg Aggregate, source string, data any) (*Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateID:   agg.ID,
		AggregateType: agg.Type,
		Version:       SchemaVersion,
		Timestamp:     time.Now().UTC(),
		Source:        source,
		Data:          payload,
	}, nil
}

func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// WithActor records who caused the event. An empty id is ignored so
// unauthenticated flows such as registration carry no actor.
func (e *Event) WithActor(id string) *Event {
	if id == "" {
		return e
	}
	if e.Metadata == nil {
		e.Metadata = map[string]string{}
	}
	e.Metadata[MetaActorID] = id
	return e
}

// Key is the partition key. Events without an aggregate fall back to their
// own ID so the hash balancer still spreads them.
func (e *Event) Key() []byte {
	if e.AggregateID != "" {
		return []byte(e.AggregateID)
	}
	return []byte(e.EventID)
}

// Headers lists the routing headers consumers can read without decoding
// the value.
func (e *Event) Headers() []kafka.Header {
	h := []kafka.Header{
		{Key: HeaderEventType, Value: []byte(e.EventType)},
		{Key: HeaderSource, Value: []byte(e.Source)},
	}
	if e.CorrelationID != "" {
		h = append(h, kafka.Header{Key: HeaderCorrelationID, Value: []byte(e.CorrelationID)})
	}
	return h
}

// Message builds the kafka message for topic.
func (e *Event) Message(topic string) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Topic:   topic,
		Key:     e.Key(),
		Value:   value,
		Headers: e.Headers(),
	}, nil
}
