// Package events emits catalog mutation messages for merged origin lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SchemaVersion is the current message schema version
const SchemaVersion = "1.0"

// Header keys set on every emitted message
const (
	HeaderMessageType   = "message_type"
	HeaderEventID       = "event_id"
	HeaderSchemaVersion = "schema_version"
)

const messageTypeJournal = "journal"

// MessageWriter writes one keyed message to a topic
type MessageWriter interface {
	Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error
}

// Emitter routes removals to the removal topic and everything else to the default topic
type Emitter struct {
	writer       MessageWriter
	logger       ectologger.Logger
	defaultTopic string
	removalTopic string
}

// NewEmitter creates a new event emitter
func NewEmitter(writer MessageWriter, logger ectologger.Logger, defaultTopic, removalTopic string) *Emitter {
	return &Emitter{
		writer:       writer,
		logger:       logger,
		defaultTopic: defaultTopic,
		removalTopic: removalTopic,
	}
}

// PublishRemoval emits a removal notification to the removal topic
func (e *Emitter) PublishRemoval(ctx context.Context, notification *models.Notification) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.PublishRemoval")
	defer span.End()

	return e.emit(ctx, e.removalTopic, notification.EventID, string(notification.Type), notification)
}

// PublishCreation emits a publication notification to the default topic
func (e *Emitter) PublishCreation(ctx context.Context, notification *models.Notification) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.PublishCreation")
	defer span.End()

	return e.emit(ctx, e.defaultTopic, notification.EventID, string(notification.Type), notification)
}

// PublishJournal emits a journal entry to the default topic
func (e *Emitter) PublishJournal(ctx context.Context, entry *models.JournalEntry) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.PublishJournal")
	defer span.End()

	return e.emit(ctx, e.defaultTopic, entry.ObjectID, messageTypeJournal, entry)
}

func (e *Emitter) emit(ctx context.Context, topic, eventID, messageType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	headers := map[string]string{
		HeaderMessageType:   messageType,
		HeaderEventID:       eventID,
		HeaderSchemaVersion: SchemaVersion,
	}
	if err := e.writer.Publish(ctx, topic, eventID, data, headers); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_id":     eventID,
			"message_type": messageType,
		}).Errorf("Failed to emit %s message", messageType)
		return err
	}
	return nil
}
