package processor

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// HandleMessage processes every event referenced by an inbound notification batch.
// Events referenced more than once in the batch are processed once. Events that
// no longer exist are skipped.
func (p *Processor) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.HandleMessage")
	defer span.End()

	for _, n := range msg.Notifications {
		metrics.InboundNotifications.WithLabelValues(string(n.Operation)).Inc()
	}

	eventIDs := msg.EventIDs()
	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"notifications": len(msg.Notifications),
		"events":        len(eventIDs),
		"offset":        msg.Offset,
	})
	log.Debug("Handling inbound notifications")

	for _, id := range eventIDs {
		event, err := p.repo.LoadEvent(ctx, id)
		if err != nil {
			if isNotFound(err) {
				log.WithField("event_id", id).Info("Event no longer exists, skipping")
				continue
			}
			log.WithError(err).WithField("event_id", id).Errorf("Failed to load event: %+v", err)
			return err
		}

		if _, err := p.ProcessEvent(ctx, event); err != nil {
			log.WithError(err).WithField("event_id", id).Errorf("Failed to process event: %+v", err)
			return err
		}
	}
	return nil
}

func isNotFound(err error) bool {
	return httperror.IsHTTPError(err) && httperror.GetStatusCode(err) == http.StatusNotFound
}
