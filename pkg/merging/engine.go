// Package merging reconciles the arrivals and magnitudes of a primary and a
// secondary origin into a merge candidate ready for relocation.
package merging

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Catalog is the read access the merge engine needs. Every call returns fully
// materialized results; the engine never issues a query while iterating another.
type Catalog interface {
	LoadPicks(ctx context.Context, ids []string) ([]models.Pick, error)
	StationExists(ctx context.Context, networkCode, stationCode string, at time.Time) (bool, error)
}

// Engine builds merge candidates
type Engine struct {
	logger  ectologger.Logger
	catalog Catalog
	newID   func() string
}

func NewEngine(logger ectologger.Logger, catalog Catalog) *Engine {
	return &Engine{
		logger:  logger,
		catalog: catalog,
		newID:   uuid.NewString,
	}
}

// MergeArrivals copies every arrival of source into destination. A copy whose
// (network, station, phase) is already used by a weighted destination arrival is
// zeroed. A copy whose station is absent from inventory goes to the context's
// unknown arrivals instead. A pick already referenced by destination is skipped.
func (e *Engine) MergeArrivals(ctx context.Context, source, destination *models.Origin, mc *MergeContext) error {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.MergeArrivals")
	defer span.End()

	if err := e.loadPicks(ctx, mc, source, destination); err != nil {
		return err
	}

	used := make(map[models.StationKey]bool, len(destination.Arrivals))
	for _, arrival := range destination.Arrivals {
		if pick, ok := mc.Pick(arrival.PickID); ok && arrival.Weight > 0 {
			used[pick.Key()] = true
		}
	}

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"source_origin_id":      source.ID,
		"destination_origin_id": destination.ID,
	})

	for _, arrival := range source.Arrivals {
		if destination.HasPick(arrival.PickID) || mc.IsDeferred(arrival.PickID) {
			continue
		}

		pick, ok := mc.Pick(arrival.PickID)
		if !ok {
			return errors.Errorf("pick %s of origin %s not found", arrival.PickID, source.ID)
		}

		copied := arrival.Clone()
		key := pick.Key()
		if used[key] {
			copied.Weight = 0
		}

		present, err := e.catalog.StationExists(ctx, key.NetworkCode, key.StationCode, pick.Time)
		if err != nil {
			return err
		}
		if !present {
			if mc.DeferArrival(copied) {
				log.WithFields(map[string]any{
					"pick_id": pick.ID,
					"network": key.NetworkCode,
					"station": key.StationCode,
				}).Debug("Deferred arrival from station missing in inventory")
			}
			continue
		}

		destination.Arrivals = append(destination.Arrivals, copied)
		if copied.Weight > 0 {
			used[key] = true
		}
	}

	return nil
}

// BuildCandidate merges the context's primary and secondary origins. It returns
// false when the secondary contributes no arrival beyond the primary's own.
func (e *Engine) BuildCandidate(ctx context.Context, mc *MergeContext) (*models.Origin, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.BuildCandidate")
	defer span.End()

	primary, secondary := mc.Primary, mc.Secondary
	candidate := primary.CloneHeader()
	candidate.ID = e.newID()

	// The primary passes through the same logic first so its own weights are normalized.
	if err := e.MergeArrivals(ctx, primary, candidate, mc); err != nil {
		return nil, false, err
	}
	if err := e.MergeArrivals(ctx, secondary, candidate, mc); err != nil {
		return nil, false, err
	}

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"primary_origin_id":   primary.ID,
		"secondary_origin_id": secondary.ID,
		"primary_arrivals":    primary.ArrivalCount(),
		"candidate_arrivals":  candidate.ArrivalCount(),
		"unknown_arrivals":    len(mc.UnknownArrivals),
	})

	if candidate.ArrivalCount()+len(mc.UnknownArrivals) <= primary.ArrivalCount() {
		log.Info("Secondary origin adds no arrivals")
		return nil, false, nil
	}

	CopyStationMagnitudes(primary, candidate, e.newID)
	CopyStationMagnitudes(secondary, candidate, e.newID)
	CopyMagnitudes(primary, candidate, e.newID)
	if len(primary.Magnitudes) == 0 {
		CopyMagnitudes(secondary, candidate, e.newID)
	}

	log.Debug("Built merge candidate")
	return candidate, true, nil
}

func (e *Engine) loadPicks(ctx context.Context, mc *MergeContext, origins ...*models.Origin) error {
	missing := mc.missingPicks(origins...)
	if len(missing) == 0 {
		return nil
	}
	picks, err := e.catalog.LoadPicks(ctx, missing)
	if err != nil {
		return err
	}
	for _, p := range picks {
		mc.addPick(p)
	}
	return nil
}
