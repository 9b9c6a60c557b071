// Package processor sequences selection, merging, relocation and lifecycle
// handling for one event at a time.
package processor

import (
	"context"
	"errors"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/lifecycle"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/relocation"
	"github.com/Ramsey-B/fern/pkg/selection"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Repository loads events and their origins. Results are fully materialized.
type Repository interface {
	LoadEvent(ctx context.Context, id string) (*models.Event, error)
	LoadEventOrigins(ctx context.Context, event *models.Event) ([]*models.Origin, error)
	ListEventIDs(ctx context.Context, begin, end time.Time) ([]string, error)
}

// Processor runs the per-event pipeline. It is not safe for concurrent use; events
// are processed one at a time.
type Processor struct {
	logger     ectologger.Logger
	repo       Repository
	selector   *selection.Selector
	merger     *merging.Engine
	relocator  *relocation.Orchestrator
	lifecycle  *lifecycle.Manager
	removeOnly bool
}

func NewProcessor(
	logger ectologger.Logger,
	repo Repository,
	selector *selection.Selector,
	merger *merging.Engine,
	relocator *relocation.Orchestrator,
	manager *lifecycle.Manager,
	removeOnly bool,
) *Processor {
	return &Processor{
		logger:     logger,
		repo:       repo,
		selector:   selector,
		merger:     merger,
		relocator:  relocator,
		lifecycle:  manager,
		removeOnly: removeOnly,
	}
}

// ProcessEvent runs selection, merge, relocation and lifecycle handling for event.
func (p *Processor) ProcessEvent(ctx context.Context, event *models.Event) (Outcome, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.ProcessEvent", tracing.EventID(event.ID))
	defer span.End()

	log := p.logger.WithContext(ctx).WithField("event_id", event.ID)

	outcome, err := p.process(ctx, event, log)
	if err != nil {
		return nil, err
	}

	metrics.EventsProcessed.WithLabelValues(outcome.Label(), reasonOf(outcome)).Inc()
	switch o := outcome.(type) {
	case Disqualified:
		log.WithFields(map[string]any{
			"reason":  string(o.Reason),
			"removed": o.Removal != nil,
		}).Info("Event not merged")
	case Failed:
		log.WithError(o.Cause).Error("Event skipped, relocation failed")
	case Merged:
		log.WithField("origin_id", o.Origin.ID).Info("Event merged")
	}
	return outcome, nil
}

func (p *Processor) process(ctx context.Context, event *models.Event, log ectologger.Logger) (Outcome, error) {
	// Origins are loaded once, before any other catalog query.
	origins, err := p.repo.LoadEventOrigins(ctx, event)
	if err != nil {
		return nil, err
	}

	mc := merging.NewMergeContext()
	mc.Primary = p.selector.SelectPrimary(ctx, event, origins)
	if mc.Primary == nil {
		return Disqualified{Reason: lifecycle.ReasonNoPrimary}, nil
	}
	mc.Secondary, mc.Merged = p.selector.SelectSecondaryAndMerged(ctx, origins, mc.Primary)

	decision := lifecycle.Decide(mc, p.removeOnly)
	switch decision.Action {
	case lifecycle.ActionRemove:
		removal, err := p.lifecycle.Remove(ctx, event, mc.Merged)
		if err != nil {
			return nil, err
		}
		return Disqualified{Reason: decision.Reason, Removal: removal}, nil
	case lifecycle.ActionNone:
		return Disqualified{Reason: decision.Reason}, nil
	}

	log.WithFields(map[string]any{
		"primary_origin_id":   mc.Primary.ID,
		"secondary_origin_id": mc.Secondary.ID,
	}).Debug("Merging origins")

	candidate, ok, err := p.merger.BuildCandidate(ctx, mc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Disqualified{Reason: lifecycle.ReasonNothingNew}, nil
	}

	relocated, err := p.relocator.Relocate(ctx, candidate, mc)
	if errors.Is(err, relocation.ErrExhausted) {
		return Failed{Cause: err}, nil
	}
	if err != nil {
		return nil, err
	}

	notification, err := p.lifecycle.Publish(ctx, event, relocated)
	if err != nil {
		return nil, err
	}
	return Merged{Origin: relocated, Notification: notification}, nil
}
