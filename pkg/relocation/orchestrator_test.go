package relocation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/mocks"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/relocation"
)

var fixedNow = time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)

func newOrchestrator(factory relocation.Factory, cfg relocation.Config) *relocation.Orchestrator {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return relocation.NewOrchestrator(logger, factory, cfg).WithClock(func() time.Time { return fixedNow })
}

func baseConfig() relocation.Config {
	return relocation.Config{
		DefaultLocator:            "LOCSAT",
		DefaultProfile:            "iasp91",
		DepthUncertaintyTolerance: 1e-9,
		Author:                    "fern",
		AgencyID:                  "MRG",
		EvaluationMode:            models.EvaluationModeAutomatic,
	}
}

func newMergeContext() (*models.Origin, *merging.MergeContext) {
	candidate := mocks.NewOrigin("cand", "GFZ", mocks.BaseTime,
		mocks.NewArrival("p1", "P", 1),
		mocks.NewArrival("p2", "P", 1),
	)
	candidate.MethodID = "Hypo71"
	candidate.EarthModelID = "tab"
	candidate.Magnitudes = []models.Magnitude{{ID: "m1", Type: "ML", Value: 3.2}}

	mc := merging.NewMergeContext()
	mc.Secondary = mocks.NewOrigin("sec", "SED", mocks.BaseTime)
	mc.Secondary.Depth = &models.RealQuantity{Value: 25, Uncertainty: mocks.Float(4)}
	return candidate, mc
}

func TestRelocateFirstAttemptSucceeds(t *testing.T) {
	locsat := &mocks.Locator{LocatorName: "LOCSAT"}
	factory := mocks.NewLocatorFactory(locsat)
	candidate, mc := newMergeContext()
	mc.DeferArrival(mocks.NewArrival("p9", "P", 1))

	result, err := newOrchestrator(factory, baseConfig()).Relocate(context.Background(), candidate, mc)
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.NotEqual(t, candidate.ID, result.ID)
	assert.Equal(t, models.CreationInfo{AgencyID: "MRG", Author: "fern", CreationTime: fixedNow}, result.CreationInfo)
	assert.Equal(t, models.EvaluationModeAutomatic, result.EvaluationMode)
	assert.Equal(t, models.EvaluationStatusPreliminary, result.EvaluationStatus)

	require.Len(t, result.Arrivals, 3)
	assert.Equal(t, "p9", result.Arrivals[2].PickID)
	assert.Equal(t, 0.0, result.Arrivals[2].Weight)

	require.Len(t, result.Magnitudes, 1)
	assert.Equal(t, "ML", result.Magnitudes[0].Type)
	assert.NotEqual(t, "m1", result.Magnitudes[0].ID)

	require.Len(t, factory.Calls, 1)
	assert.Equal(t, "iasp91", factory.Calls[0].Settings.Profile)
	assert.Len(t, factory.Calls[0].Origin.Arrivals, 2)
}

func TestRelocateCascade(t *testing.T) {
	hypo := &mocks.Locator{LocatorName: "Hypo71", Results: []mocks.LocatorResult{
		mocks.Fail("Hypo71", "no convergence"),
		mocks.Fail("Hypo71", "no convergence"),
	}}
	locsat := &mocks.Locator{LocatorName: "LOCSAT"}
	factory := mocks.NewLocatorFactory(hypo, locsat)

	cfg := baseConfig()
	cfg.UseOriginLocator = true
	candidate, mc := newMergeContext()

	result, err := newOrchestrator(factory, cfg).Relocate(context.Background(), candidate, mc)
	require.NoError(t, err)
	require.NotNil(t, result)

	require.Len(t, factory.Calls, 3)
	assert.Equal(t, "Hypo71", factory.Calls[0].Locator)
	assert.Equal(t, "tab", factory.Calls[0].Settings.Profile)
	assert.Equal(t, 10.0, factory.Calls[0].Origin.Depth.Value)

	assert.Equal(t, "Hypo71", factory.Calls[1].Locator)
	assert.Equal(t, 25.0, factory.Calls[1].Origin.Depth.Value)

	assert.Equal(t, "LOCSAT", factory.Calls[2].Locator)
	assert.Equal(t, "iasp91", factory.Calls[2].Settings.Profile)
	assert.Equal(t, 10.0, factory.Calls[2].Origin.Depth.Value)

	assert.Equal(t, 10.0, candidate.Depth.Value)
}

func TestRelocateExhausted(t *testing.T) {
	locsat := &mocks.Locator{LocatorName: "LOCSAT", Results: []mocks.LocatorResult{
		mocks.Fail("LOCSAT", "too few phases"),
	}}
	candidate, mc := newMergeContext()

	result, err := newOrchestrator(mocks.NewLocatorFactory(locsat), baseConfig()).Relocate(context.Background(), candidate, mc)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, relocation.ErrExhausted)

	var computation *relocation.ComputationError
	require.ErrorAs(t, err, &computation)
	assert.Equal(t, "LOCSAT", computation.Locator)
}

func TestRelocateInfrastructureErrorAborts(t *testing.T) {
	down := errors.New("connection refused")
	hypo := &mocks.Locator{LocatorName: "Hypo71", Results: []mocks.LocatorResult{{Err: down}}}
	locsat := &mocks.Locator{LocatorName: "LOCSAT"}
	factory := mocks.NewLocatorFactory(hypo, locsat)

	cfg := baseConfig()
	cfg.UseOriginLocator = true
	candidate, mc := newMergeContext()

	_, err := newOrchestrator(factory, cfg).Relocate(context.Background(), candidate, mc)
	assert.ErrorIs(t, err, down)
	assert.NotErrorIs(t, err, relocation.ErrExhausted)
	assert.Len(t, factory.Calls, 1)
}

func TestRelocateUnavailableLocatorFallsBack(t *testing.T) {
	locsat := &mocks.Locator{LocatorName: "LOCSAT"}
	factory := mocks.NewLocatorFactory(locsat)

	cfg := baseConfig()
	cfg.UseOriginLocator = true
	candidate, mc := newMergeContext()

	_, err := newOrchestrator(factory, cfg).Relocate(context.Background(), candidate, mc)
	require.NoError(t, err)

	require.Len(t, factory.Calls, 1)
	assert.Equal(t, "LOCSAT", factory.Calls[0].Locator)
	assert.Equal(t, "iasp91", factory.Calls[0].Settings.Profile)
}

func TestRelocateSkipsRepeatedFallbackAttempt(t *testing.T) {
	tests := []struct {
		name       string
		fixedDepth *float64
		wantDepths []float64
	}{
		{"fixed depth", mocks.Float(5), []float64{10}},
		{"free depth", nil, []float64{10, 25}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locsat := &mocks.Locator{LocatorName: "LOCSAT", Results: []mocks.LocatorResult{
				mocks.Fail("LOCSAT", "too few phases"),
				mocks.Fail("LOCSAT", "too few phases"),
			}}
			factory := mocks.NewLocatorFactory(locsat)

			cfg := baseConfig()
			cfg.UseOriginLocator = true
			cfg.FixedDepth = tt.fixedDepth
			candidate, mc := newMergeContext()

			result, err := newOrchestrator(factory, cfg).Relocate(context.Background(), candidate, mc)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, relocation.ErrExhausted)

			var depths []float64
			for _, call := range factory.Calls {
				assert.Equal(t, "LOCSAT", call.Locator)
				assert.Equal(t, "iasp91", call.Settings.Profile)
				depths = append(depths, call.Origin.Depth.Value)
			}
			assert.Equal(t, tt.wantDepths, depths)
		})
	}
}

func TestRelocateConfigureFailureMovesOn(t *testing.T) {
	hypo := &mocks.Locator{LocatorName: "Hypo71", ConfigureErr: errors.New("unknown profile tab")}
	locsat := &mocks.Locator{LocatorName: "LOCSAT"}
	factory := mocks.NewLocatorFactory(hypo, locsat)

	cfg := baseConfig()
	cfg.UseOriginLocator = true
	candidate, mc := newMergeContext()

	_, err := newOrchestrator(factory, cfg).Relocate(context.Background(), candidate, mc)
	require.NoError(t, err)
	require.Len(t, factory.Calls, 1)
	assert.Equal(t, "LOCSAT", factory.Calls[0].Locator)
}

func TestRelocateDepthPolicy(t *testing.T) {
	tests := []struct {
		name        string
		fixedDepth  *float64
		uncertainty *float64
		expected    *float64
	}{
		{name: "free depth when uncertain", uncertainty: mocks.Float(2.5), expected: nil},
		{name: "pinned when uncertainty is zero", uncertainty: mocks.Float(0), expected: mocks.Float(10)},
		{name: "pinned when uncertainty is within tolerance", uncertainty: mocks.Float(1e-12), expected: mocks.Float(10)},
		{name: "pinned when uncertainty is unset", uncertainty: nil, expected: mocks.Float(10)},
		{name: "override wins", fixedDepth: mocks.Float(5), uncertainty: mocks.Float(2.5), expected: mocks.Float(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locsat := &mocks.Locator{LocatorName: "LOCSAT"}
			factory := mocks.NewLocatorFactory(locsat)

			cfg := baseConfig()
			cfg.FixedDepth = tt.fixedDepth
			cfg.DistanceCutOff = mocks.Float(20)
			candidate, mc := newMergeContext()
			candidate.Depth.Uncertainty = tt.uncertainty

			_, err := newOrchestrator(factory, cfg).Relocate(context.Background(), candidate, mc)
			require.NoError(t, err)
			require.Len(t, factory.Calls, 1)

			settings := factory.Calls[0].Settings
			assert.Equal(t, tt.expected, settings.FixedDepth)
			assert.Equal(t, mocks.Float(20), settings.DistanceCutOff)
		})
	}
}
