package kafka

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/fern/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Parsed content
	Notifications []InboundNotification
}

// InboundMessage is the wire format of a catalog notification batch
type InboundMessage struct {
	Notifications []InboundNotification `json:"notifications"`
}

// InboundNotification carries either an event or a journal entry that references an event
type InboundNotification struct {
	Operation models.Operation    `json:"operation"`
	Event     *models.Event        `json:"event,omitempty"`
	Journal   *models.JournalEntry `json:"journal,omitempty"`
}

// EventID returns the id of the event the notification is about, or "" when it
// carries neither an event nor a journal entry
func (n InboundNotification) EventID() string {
	if n.Event != nil {
		return n.Event.ID
	}
	if n.Journal != nil {
		return n.Journal.ObjectID
	}
	return ""
}

func newIncomingMessage(msg kafka.Message) *IncomingMessage {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &IncomingMessage{
		Key:       string(msg.Key),
		Value:     msg.Value,
		Headers:   headers,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Topic:     msg.Topic,
	}
}

// ParseNotifications parses the message value as an inbound notification batch
func (m *IncomingMessage) ParseNotifications() error {
	var msg InboundMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return err
	}
	if msg.Notifications == nil {
		return errors.New("message carries no notifications")
	}
	m.Notifications = msg.Notifications
	return nil
}

// EventIDs returns the distinct event ids referenced by the message, in first-seen order
func (m *IncomingMessage) EventIDs() []string {
	seen := make(map[string]struct{}, len(m.Notifications))
	ids := make([]string, 0, len(m.Notifications))
	for _, n := range m.Notifications {
		id := n.EventID()
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
