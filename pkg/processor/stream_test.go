package processor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
)

func TestHandleMessage(t *testing.T) {
	t.Run("processes each referenced event once", func(t *testing.T) {
		h := newHarness(newCatalog(), options{})
		msg := &kafka.IncomingMessage{Notifications: []kafka.InboundNotification{
			{Operation: models.OperationAdd, Event: &models.Event{ID: "E"}},
			{Operation: models.OperationUpdate, Journal: &models.JournalEntry{ObjectID: "E"}},
			{Operation: models.OperationUpdate, Event: &models.Event{ID: "E"}},
		}}

		require.NoError(t, h.processor.HandleMessage(context.Background(), msg))

		loads := 0
		for _, call := range h.catalog.Calls {
			if call == "LoadEvent" {
				loads++
			}
		}
		assert.Equal(t, 1, loads)
		assert.Len(t, h.publisher.Creations, 1)
	})

	t.Run("skips events that no longer exist", func(t *testing.T) {
		h := newHarness(newCatalog(), options{})
		msg := &kafka.IncomingMessage{Notifications: []kafka.InboundNotification{
			{Operation: models.OperationRemove, Event: &models.Event{ID: "gone"}},
			{Operation: models.OperationAdd, Event: &models.Event{ID: "E"}},
		}}

		require.NoError(t, h.processor.HandleMessage(context.Background(), msg))
		assert.Len(t, h.publisher.Creations, 1)
	})

	t.Run("infrastructure errors stop the batch", func(t *testing.T) {
		catalog := newCatalog()
		catalog.Errors["LoadEvent"] = errors.New("database unavailable")
		h := newHarness(catalog, options{})
		msg := &kafka.IncomingMessage{Notifications: []kafka.InboundNotification{
			{Operation: models.OperationAdd, Event: &models.Event{ID: "E"}},
		}}

		err := h.processor.HandleMessage(context.Background(), msg)
		assert.ErrorContains(t, err, "database unavailable")
		assert.Zero(t, h.publisher.Total())
	})
}
