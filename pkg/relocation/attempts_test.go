package relocation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/fern/mocks"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/relocation"
)

type attemptSummary struct {
	Locator string
	Profile string
	Source  relocation.DepthSource
}

func collect(candidate, secondary *models.Origin, cfg relocation.Config) []attemptSummary {
	var out []attemptSummary
	for a := range relocation.Attempts(candidate, secondary, cfg) {
		out = append(out, attemptSummary{a.Locator, a.Profile, a.DepthSource})
	}
	return out
}

func TestAttempts(t *testing.T) {
	withMethod := mocks.NewOrigin("cand", "GFZ", mocks.BaseTime)
	withMethod.MethodID = "Hypo71"
	withMethod.EarthModelID = "tab"

	withoutMethod := mocks.NewOrigin("cand", "GFZ", mocks.BaseTime)
	secondary := mocks.NewOrigin("sec", "SED", mocks.BaseTime)

	base := relocation.Config{DefaultLocator: "LOCSAT", DefaultProfile: "iasp91"}
	originLocator := base
	originLocator.UseOriginLocator = true
	fixed := originLocator
	fixed.FixedDepth = mocks.Float(8)

	tests := []struct {
		name      string
		candidate *models.Origin
		cfg       relocation.Config
		expected  []attemptSummary
	}{
		{
			name:      "default locator only",
			candidate: withMethod,
			cfg:       base,
			expected: []attemptSummary{
				{"LOCSAT", "iasp91", relocation.DepthFromCandidate},
			},
		},
		{
			name:      "origin locator then secondary depth then default",
			candidate: withMethod,
			cfg:       originLocator,
			expected: []attemptSummary{
				{"Hypo71", "tab", relocation.DepthFromCandidate},
				{"Hypo71", "tab", relocation.DepthFromSecondary},
				{"LOCSAT", "iasp91", relocation.DepthFromCandidate},
			},
		},
		{
			name:      "fixed depth skips the secondary depth attempt",
			candidate: withMethod,
			cfg:       fixed,
			expected: []attemptSummary{
				{"Hypo71", "tab", relocation.DepthFromCandidate},
				{"LOCSAT", "iasp91", relocation.DepthFromCandidate},
			},
		},
		{
			name:      "origin locator equal to default is not repeated",
			candidate: withoutMethod,
			cfg:       originLocator,
			expected: []attemptSummary{
				{"LOCSAT", "iasp91", relocation.DepthFromCandidate},
				{"LOCSAT", "iasp91", relocation.DepthFromSecondary},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, collect(tt.candidate, secondary, tt.cfg))
		})
	}
}

func TestAttemptsDepths(t *testing.T) {
	candidate := mocks.NewOrigin("cand", "GFZ", mocks.BaseTime)
	candidate.Depth.Value = 12
	secondary := mocks.NewOrigin("sec", "SED", mocks.BaseTime)
	secondary.Depth.Value = 30

	cfg := relocation.Config{DefaultLocator: "LOCSAT", DefaultProfile: "iasp91", UseOriginLocator: true}
	var depths []float64
	for a := range relocation.Attempts(candidate, secondary, cfg) {
		depths = append(depths, a.Depth.Value)
	}
	assert.Equal(t, []float64{12, 30}, depths)
}

func TestAttemptsSingleUse(t *testing.T) {
	candidate := mocks.NewOrigin("cand", "GFZ", mocks.BaseTime)
	seq := relocation.Attempts(candidate, nil, relocation.Config{DefaultLocator: "LOCSAT"})

	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)
}

func TestAttemptsStopEarly(t *testing.T) {
	candidate := mocks.NewOrigin("cand", "GFZ", mocks.BaseTime)
	candidate.MethodID = "Hypo71"
	cfg := relocation.Config{DefaultLocator: "LOCSAT", UseOriginLocator: true}

	var seen []string
	for a := range relocation.Attempts(candidate, candidate, cfg) {
		seen = append(seen, a.Locator)
		break
	}
	assert.Equal(t, []string{"Hypo71"}, seen)
}
