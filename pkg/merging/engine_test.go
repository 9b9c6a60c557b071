package merging_test

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/mocks"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/models"
)

func newCatalog() *mocks.Catalog {
	catalog := mocks.NewCatalog()
	catalog.AddStation("CH", "AAA", mocks.BaseTime.Add(-time.Hour), nil)
	catalog.AddStation("CH", "BBB", mocks.BaseTime.Add(-time.Hour), nil)
	closed := mocks.BaseTime.Add(-time.Minute)
	catalog.AddStation("CH", "OLD", mocks.BaseTime.Add(-time.Hour), &closed)
	catalog.AddPicks(
		mocks.NewPick("p1", "CH", "AAA", "P"),
		mocks.NewPick("p2", "CH", "AAA", "P"),
		mocks.NewPick("p3", "CH", "BBB", "P"),
		mocks.NewPick("p4", "XX", "ZZZ", "P"),
		mocks.NewPick("p5", "CH", "OLD", "S"),
		mocks.NewPick("p6", "CH", "AAA", "S"),
	)
	return catalog
}

func newEngine(catalog merging.Catalog) *merging.Engine {
	return merging.NewEngine(ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}), catalog)
}

func weights(origin *models.Origin) map[string]float64 {
	w := make(map[string]float64, len(origin.Arrivals))
	for _, a := range origin.Arrivals {
		w[a.PickID] = a.Weight
	}
	return w
}

func TestBuildCandidate(t *testing.T) {
	tests := []struct {
		name            string
		primary         []models.Arrival
		secondary       []models.Arrival
		expectOK        bool
		expectedWeights map[string]float64
		expectedUnknown []string
	}{
		{
			name:            "duplicate station and phase is zeroed",
			primary:         []models.Arrival{mocks.NewArrival("p1", "P", 1)},
			secondary:       []models.Arrival{mocks.NewArrival("p2", "P", 1), mocks.NewArrival("p3", "P", 1)},
			expectOK:        true,
			expectedWeights: map[string]float64{"p1": 1, "p2": 0, "p3": 1},
		},
		{
			name:            "unused primary arrival does not block a duplicate",
			primary:         []models.Arrival{mocks.NewArrival("p1", "P", 0)},
			secondary:       []models.Arrival{mocks.NewArrival("p2", "P", 1)},
			expectOK:        true,
			expectedWeights: map[string]float64{"p1": 0, "p2": 1},
		},
		{
			name:            "different phase at the same station is kept",
			primary:         []models.Arrival{mocks.NewArrival("p1", "P", 1)},
			secondary:       []models.Arrival{mocks.NewArrival("p6", "S", 1)},
			expectOK:        true,
			expectedWeights: map[string]float64{"p1": 1, "p6": 1},
		},
		{
			name:            "stations missing from inventory are deferred",
			primary:         []models.Arrival{mocks.NewArrival("p1", "P", 1)},
			secondary:       []models.Arrival{mocks.NewArrival("p4", "P", 1), mocks.NewArrival("p5", "S", 1)},
			expectOK:        true,
			expectedWeights: map[string]float64{"p1": 1},
			expectedUnknown: []string{"p4", "p5"},
		},
		{
			name:      "shared picks add nothing",
			primary:   []models.Arrival{mocks.NewArrival("p1", "P", 1), mocks.NewArrival("p3", "P", 1)},
			secondary: []models.Arrival{mocks.NewArrival("p3", "P", 1), mocks.NewArrival("p1", "P", 1)},
			expectOK:  false,
		},
		{
			name:      "empty secondary adds nothing",
			primary:   []models.Arrival{mocks.NewArrival("p1", "P", 1)},
			secondary: nil,
			expectOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc := merging.NewMergeContext()
			mc.Primary = mocks.NewOrigin("primary", "GFZ", mocks.BaseTime, tt.primary...)
			mc.Secondary = mocks.NewOrigin("secondary", "SED", mocks.BaseTime, tt.secondary...)

			candidate, ok, err := newEngine(newCatalog()).BuildCandidate(context.Background(), mc)
			require.NoError(t, err)
			assert.Equal(t, tt.expectOK, ok)
			if !tt.expectOK {
				assert.Nil(t, candidate)
				return
			}

			assert.NotEqual(t, "primary", candidate.ID)
			assert.Equal(t, tt.expectedWeights, weights(candidate))

			var unknown []string
			for _, a := range mc.UnknownArrivals {
				unknown = append(unknown, a.PickID)
			}
			assert.Equal(t, tt.expectedUnknown, unknown)
		})
	}
}

func TestBuildCandidateLeavesInputsUntouched(t *testing.T) {
	mc := merging.NewMergeContext()
	mc.Primary = mocks.NewOrigin("primary", "GFZ", mocks.BaseTime, mocks.NewArrival("p1", "P", 1))
	mc.Secondary = mocks.NewOrigin("secondary", "SED", mocks.BaseTime, mocks.NewArrival("p2", "P", 1))

	_, ok, err := newEngine(newCatalog()).BuildCandidate(context.Background(), mc)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Len(t, mc.Primary.Arrivals, 1)
	assert.Equal(t, 1.0, mc.Secondary.Arrivals[0].Weight)
}

func TestBuildCandidateLoadsEachPickOnce(t *testing.T) {
	catalog := newCatalog()
	mc := merging.NewMergeContext()
	mc.Primary = mocks.NewOrigin("primary", "GFZ", mocks.BaseTime, mocks.NewArrival("p1", "P", 1))
	mc.Secondary = mocks.NewOrigin("secondary", "SED", mocks.BaseTime, mocks.NewArrival("p3", "P", 1))

	_, _, err := newEngine(catalog).BuildCandidate(context.Background(), mc)
	require.NoError(t, err)

	loads := 0
	for _, call := range catalog.Calls {
		if call == "LoadPicks" {
			loads++
		}
	}
	assert.Equal(t, 2, loads)
	for _, id := range []string{"p1", "p3"} {
		_, ok := mc.Pick(id)
		assert.True(t, ok, "pick %s not cached", id)
	}
}

func TestBuildCandidateMissingPick(t *testing.T) {
	mc := merging.NewMergeContext()
	mc.Primary = mocks.NewOrigin("primary", "GFZ", mocks.BaseTime, mocks.NewArrival("p1", "P", 1))
	mc.Secondary = mocks.NewOrigin("secondary", "SED", mocks.BaseTime, mocks.NewArrival("nope", "P", 1))

	_, _, err := newEngine(newCatalog()).BuildCandidate(context.Background(), mc)
	assert.ErrorContains(t, err, "pick nope")
}

func TestBuildCandidateMagnitudes(t *testing.T) {
	primaryMag := models.Magnitude{ID: "pm", Type: "ML", Value: 3.1}
	secondaryMag := models.Magnitude{ID: "sm", Type: "MLv", Value: 3.3}
	primaryStaMag := models.StationMagnitude{ID: "psm", Type: "ML", Value: 3.0}
	secondaryStaMag := models.StationMagnitude{ID: "ssm", Type: "ML", Value: 3.4}

	build := func(primaryMags []models.Magnitude) *models.Origin {
		mc := merging.NewMergeContext()
		mc.Primary = mocks.NewOrigin("primary", "GFZ", mocks.BaseTime, mocks.NewArrival("p1", "P", 1))
		mc.Primary.Magnitudes = primaryMags
		mc.Primary.StationMagnitudes = []models.StationMagnitude{primaryStaMag}
		mc.Secondary = mocks.NewOrigin("secondary", "SED", mocks.BaseTime, mocks.NewArrival("p3", "P", 1))
		mc.Secondary.Magnitudes = []models.Magnitude{secondaryMag}
		mc.Secondary.StationMagnitudes = []models.StationMagnitude{secondaryStaMag}

		candidate, ok, err := newEngine(newCatalog()).BuildCandidate(context.Background(), mc)
		require.NoError(t, err)
		require.True(t, ok)
		return candidate
	}

	t.Run("primary magnitudes win", func(t *testing.T) {
		candidate := build([]models.Magnitude{primaryMag})
		require.Len(t, candidate.Magnitudes, 1)
		assert.Equal(t, "ML", candidate.Magnitudes[0].Type)
		assert.NotEqual(t, "pm", candidate.Magnitudes[0].ID)
	})

	t.Run("secondary magnitudes fill in", func(t *testing.T) {
		candidate := build(nil)
		require.Len(t, candidate.Magnitudes, 1)
		assert.Equal(t, "MLv", candidate.Magnitudes[0].Type)
	})

	t.Run("station magnitudes come from both", func(t *testing.T) {
		candidate := build(nil)
		require.Len(t, candidate.StationMagnitudes, 2)
		assert.Equal(t, 3.0, candidate.StationMagnitudes[0].Value)
		assert.Equal(t, 3.4, candidate.StationMagnitudes[1].Value)
		assert.NotEqual(t, "psm", candidate.StationMagnitudes[0].ID)
	})
}

func TestMergeContextDeferArrival(t *testing.T) {
	mc := merging.NewMergeContext()

	assert.True(t, mc.DeferArrival(mocks.NewArrival("p1", "P", 1)))
	assert.False(t, mc.DeferArrival(mocks.NewArrival("p1", "P", 0)))
	assert.True(t, mc.IsDeferred("p1"))
	assert.Len(t, mc.UnknownArrivals, 1)
}
