package relocation

import (
	"context"
	"errors"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Config controls the relocation cascade and the attribution of its result
type Config struct {
	FixedDepth            *float64
	DistanceCutOff        *float64
	IgnoreInitialLocation bool
	DefaultLocator        string
	DefaultProfile        string
	UseOriginLocator      bool
	// DepthUncertaintyTolerance is the absolute tolerance under which a depth
	// uncertainty counts as zero
	DepthUncertaintyTolerance float64

	Author         string
	AgencyID       string
	EvaluationMode models.EvaluationMode
}

// Orchestrator relocates merge candidates
type Orchestrator struct {
	logger  ectologger.Logger
	factory Factory
	cfg     Config
	now     func() time.Time
	newID   func() string
}

func NewOrchestrator(logger ectologger.Logger, factory Factory, cfg Config) *Orchestrator {
	return &Orchestrator{
		logger:  logger,
		factory: factory,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// WithClock replaces the clock used to stamp relocated origins
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Relocate runs the attempt cascade for candidate and returns the first relocated
// origin, attributed to the output identity and carrying the deferred arrivals
// and the candidate's magnitudes. Computational failures move on to the next
// attempt; when none is left the error wraps ErrExhausted. Any other error aborts.
// An attempt that resolves to a locator, profile and depth source already tried
// is skipped.
func (o *Orchestrator) Relocate(ctx context.Context, candidate *models.Origin, mc *merging.MergeContext) (*models.Origin, error) {
	ctx, span := tracing.StartSpan(ctx, "relocation.Orchestrator.Relocate", tracing.OriginID(candidate.ID))
	defer span.End()

	log := o.logger.WithContext(ctx).WithFields(map[string]any{
		"candidate_id": candidate.ID,
	})

	picks := picksFor(candidate, mc)
	tried := make(map[string]bool)
	var lastErr error
	attempt := 0
	for a := range Attempts(candidate, mc.Secondary, o.cfg) {
		attempt++
		locator, profile, err := o.resolve(ctx, a)
		if err != nil {
			return nil, err
		}

		attemptLog := log.WithFields(map[string]any{
			"attempt":      attempt,
			"locator":      locator.Name(),
			"profile":      profile,
			"depth_source": string(a.DepthSource),
		})

		key := locator.Name() + "|" + profile + "|" + string(a.DepthSource)
		if tried[key] {
			attemptLog.Debug("Skipping relocation attempt already tried")
			continue
		}
		tried[key] = true

		result, err := o.try(ctx, a, locator, profile, candidate, picks)
		if err != nil {
			var computation *ComputationError
			if !errors.As(err, &computation) {
				return nil, err
			}
			attemptLog.WithError(err).Warn("Relocation attempt failed")
			lastErr = err
			continue
		}

		attemptLog.Info("Relocation attempt succeeded")
		return o.finish(candidate, result, mc), nil
	}

	log.WithError(lastErr).Error("Relocation failed for every attempt")
	if lastErr == nil {
		return nil, ErrExhausted
	}
	return nil, errors.Join(ErrExhausted, lastErr)
}

func (o *Orchestrator) try(ctx context.Context, a Attempt, locator Locator, profile string, candidate *models.Origin, picks []models.Pick) (*models.Origin, error) {
	ctx, span := tracing.StartSpan(ctx, "relocation.Orchestrator.try")
	defer span.End()

	input := candidate.Clone()
	input.Depth = a.Depth.Clone()

	settings := Settings{
		Profile:               profile,
		FixedDepth:            o.cfg.depthPolicy(input.Depth),
		DistanceCutOff:        o.cfg.DistanceCutOff,
		IgnoreInitialLocation: o.cfg.IgnoreInitialLocation,
	}
	if err := locator.Configure(settings); err != nil {
		metrics.RelocationAttempts.WithLabelValues(locator.Name(), "config_error").Inc()
		return nil, &ComputationError{Locator: locator.Name(), Err: err}
	}

	start := time.Now()
	result, err := locator.Relocate(ctx, input, picks)
	metrics.RelocationDuration.WithLabelValues(locator.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RelocationAttempts.WithLabelValues(locator.Name(), "failed").Inc()
		return nil, err
	}
	metrics.RelocationAttempts.WithLabelValues(locator.Name(), "succeeded").Inc()
	return result, nil
}

// resolve creates the attempt's locator, falling back to the default locator and
// profile when the named one is unavailable
func (o *Orchestrator) resolve(ctx context.Context, a Attempt) (Locator, string, error) {
	locator, err := o.factory.Create(a.Locator)
	if err == nil {
		return locator, a.Profile, nil
	}
	if !errors.Is(err, ErrLocatorUnavailable) || a.Locator == o.cfg.DefaultLocator {
		return nil, "", err
	}

	o.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
		"locator":         a.Locator,
		"default_locator": o.cfg.DefaultLocator,
	}).Warn("Locator unavailable, falling back to default locator")

	locator, err = o.factory.Create(o.cfg.DefaultLocator)
	if err != nil {
		return nil, "", err
	}
	return locator, o.cfg.DefaultProfile, nil
}

func (o *Orchestrator) finish(candidate, result *models.Origin, mc *merging.MergeContext) *models.Origin {
	if result.ID == "" || result.ID == candidate.ID {
		result.ID = o.newID()
	}
	result.CreationInfo = models.CreationInfo{
		AgencyID:     o.cfg.AgencyID,
		Author:       o.cfg.Author,
		CreationTime: o.now(),
	}
	result.EvaluationMode = o.cfg.EvaluationMode
	result.EvaluationStatus = models.EvaluationStatusPreliminary

	for _, arrival := range mc.UnknownArrivals {
		if result.HasPick(arrival.PickID) {
			continue
		}
		deferred := arrival.Clone()
		deferred.Weight = 0
		result.Arrivals = append(result.Arrivals, deferred)
	}

	result.Magnitudes = nil
	result.StationMagnitudes = nil
	merging.CopyMagnitudes(candidate, result, o.newID)
	merging.CopyStationMagnitudes(candidate, result, o.newID)
	return result
}

// picksFor returns the picks of candidate's arrivals. Deferred arrivals are not on
// the candidate, so their picks never reach the locator.
func picksFor(candidate *models.Origin, mc *merging.MergeContext) []models.Pick {
	picks := make([]models.Pick, 0, len(candidate.Arrivals))
	for _, arrival := range candidate.Arrivals {
		if pick, ok := mc.Pick(arrival.PickID); ok {
			picks = append(picks, *pick)
		}
	}
	return picks
}
