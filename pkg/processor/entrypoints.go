package processor

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ProcessEventID loads and processes a single event
func (p *Processor) ProcessEventID(ctx context.Context, eventID string) (Outcome, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.ProcessEventID", tracing.EventID(eventID))
	defer span.End()

	log := p.logger.WithContext(ctx).WithField("event_id", eventID)

	event, err := p.repo.LoadEvent(ctx, eventID)
	if err != nil {
		log.WithError(err).Errorf("Failed to load event: %+v", err)
		return nil, err
	}

	outcome, err := p.ProcessEvent(ctx, event)
	if err != nil {
		log.WithError(err).Errorf("Failed to process event: %+v", err)
		return nil, err
	}
	return outcome, nil
}

// Summary counts the outcomes of a batch run
type Summary struct {
	Events       int
	Merged       int
	Disqualified int
	Failed       int
}

func (s *Summary) add(o Outcome) {
	s.Events++
	switch o.(type) {
	case Merged:
		s.Merged++
	case Disqualified:
		s.Disqualified++
	case Failed:
		s.Failed++
	}
}

// ProcessTimeWindow processes every event created within [begin, end]. The event
// list is loaded in full before the first event is processed. The first
// infrastructure error stops the run.
func (p *Processor) ProcessTimeWindow(ctx context.Context, begin, end time.Time) (Summary, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.ProcessTimeWindow")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"begin": begin.Format(time.RFC3339),
		"end":   end.Format(time.RFC3339),
	})

	var summary Summary
	if end.Before(begin) {
		return summary, errors.Errorf("time window end %s is before begin %s", end.Format(time.RFC3339), begin.Format(time.RFC3339))
	}

	eventIDs, err := p.repo.ListEventIDs(ctx, begin, end)
	if err != nil {
		log.WithError(err).Errorf("Failed to list events: %+v", err)
		return summary, err
	}
	log.WithField("events", len(eventIDs)).Info("Processing events in time window")

	for _, id := range eventIDs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		outcome, err := p.ProcessEventID(ctx, id)
		if err != nil {
			return summary, err
		}
		summary.add(outcome)
	}

	log.WithFields(map[string]any{
		"events":       summary.Events,
		"merged":       summary.Merged,
		"disqualified": summary.Disqualified,
		"failed":       summary.Failed,
	}).Info("Finished time window")
	return summary, nil
}
