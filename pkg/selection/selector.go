// Package selection applies the agency and evaluation-mode policy that picks the
// primary and secondary origins of an event and spots an existing merged origin.
package selection

import (
	"context"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Identity is the author/agency pair stamped on origins this service produces
type Identity struct {
	Author   string
	AgencyID string
}

// Policy restricts which origins qualify as primary or secondary
type Policy struct {
	PrimaryAgencyIDs   []string
	SecondaryAgencyIDs []string
	// EvaluationMode is the required mode, or EvaluationModeUnset to accept any
	EvaluationMode models.EvaluationMode
	Output         Identity
}

// Selector picks primary, secondary and merged origins out of an event's origins
type Selector struct {
	logger ectologger.Logger
	policy Policy
}

func NewSelector(logger ectologger.Logger, policy Policy) *Selector {
	return &Selector{
		logger: logger,
		policy: policy,
	}
}

// SelectPrimary resolves the event's preferred origin among origins and qualifies it.
// It returns nil, logging the disqualifying reason, when the preferred origin is
// missing, from a disallowed agency or of the wrong evaluation mode.
func (s *Selector) SelectPrimary(ctx context.Context, event *models.Event, origins []*models.Origin) *models.Origin {
	ctx, span := tracing.StartSpan(ctx, "selection.Selector.SelectPrimary")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"event_id":            event.ID,
		"preferred_origin_id": event.PreferredOriginID,
	})

	if event.PreferredOriginID == "" {
		log.Info("Event has no preferred origin")
		return nil
	}

	var preferred *models.Origin
	for _, origin := range origins {
		if origin.ID == event.PreferredOriginID {
			preferred = origin
			break
		}
	}
	if preferred == nil {
		log.Info("Preferred origin not found among event origins")
		return nil
	}

	if !ectolinq.Contains(s.policy.PrimaryAgencyIDs, preferred.CreationInfo.AgencyID) {
		log.WithFields(map[string]any{
			"agency_id": preferred.CreationInfo.AgencyID,
		}).Info("Preferred origin agency is not an allowed primary agency")
		return nil
	}

	if !s.modeAllowed(preferred) {
		log.WithFields(map[string]any{
			"evaluation_mode":          preferred.EvaluationMode.String(),
			"required_evaluation_mode": s.policy.EvaluationMode.String(),
		}).Info("Preferred origin evaluation mode does not match")
		return nil
	}

	return preferred
}

// SelectSecondaryAndMerged walks origins once. Among origins other than primary
// whose agency and mode qualify, the latest created becomes the secondary (ties
// keep the first found). The first origin carrying the output identity is
// returned as the merged origin; it never competes as a secondary.
func (s *Selector) SelectSecondaryAndMerged(ctx context.Context, origins []*models.Origin, primary *models.Origin) (secondary, merged *models.Origin) {
	ctx, span := tracing.StartSpan(ctx, "selection.Selector.SelectSecondaryAndMerged")
	defer span.End()

	for _, origin := range origins {
		if primary != nil && origin.ID == primary.ID {
			continue
		}

		if origin.IsCreatedBy(s.policy.Output.Author, s.policy.Output.AgencyID) {
			if merged == nil {
				merged = origin
			}
			continue
		}

		if !ectolinq.Contains(s.policy.SecondaryAgencyIDs, origin.CreationInfo.AgencyID) {
			continue
		}
		if !s.modeAllowed(origin) {
			continue
		}

		if secondary == nil || origin.CreationInfo.CreationTime.After(secondary.CreationInfo.CreationTime) {
			secondary = origin
		}
	}

	log := s.logger.WithContext(ctx)
	if secondary != nil {
		log = log.WithField("secondary_origin_id", secondary.ID)
	}
	if merged != nil {
		log = log.WithField("merged_origin_id", merged.ID)
	}
	log.Debug("Selected secondary and merged origins")

	return secondary, merged
}

func (s *Selector) modeAllowed(origin *models.Origin) bool {
	return s.policy.EvaluationMode == models.EvaluationModeUnset || origin.EvaluationMode == s.policy.EvaluationMode
}
