package relocation

import (
	"iter"
	"math"

	"github.com/Ramsey-B/fern/pkg/models"
)

// DepthSource names the origin an attempt takes its starting depth from
type DepthSource string

const (
	DepthFromCandidate DepthSource = "candidate"
	DepthFromSecondary DepthSource = "secondary"
)

// Attempt is one (locator, depth) combination of the cascade
type Attempt struct {
	Locator     string
	Profile     string
	DepthSource DepthSource
	Depth       *models.RealQuantity
}

// relativeTolerance is applied together with Config.DepthUncertaintyTolerance
const relativeTolerance = 1e-9

// Attempts yields the cascade for candidate in order:
//  1. the candidate's own locator with the candidate's depth
//  2. the candidate's own locator with the secondary's depth, without a fixed depth override
//  3. the default locator with the candidate's depth, unless attempt 1 already used it
//
// Attempts 1 and 2 require UseOriginLocator. The sequence can be consumed once.
func Attempts(candidate, secondary *models.Origin, cfg Config) iter.Seq[Attempt] {
	consumed := false
	return func(yield func(Attempt) bool) {
		if consumed {
			return
		}
		consumed = true

		originLocator, originProfile := cfg.originLocator(candidate)
		if cfg.UseOriginLocator {
			if !yield(Attempt{Locator: originLocator, Profile: originProfile, DepthSource: DepthFromCandidate, Depth: candidate.Depth}) {
				return
			}
			if cfg.FixedDepth == nil && secondary != nil {
				if !yield(Attempt{Locator: originLocator, Profile: originProfile, DepthSource: DepthFromSecondary, Depth: secondary.Depth}) {
					return
				}
			}
			if originLocator == cfg.DefaultLocator && originProfile == cfg.DefaultProfile {
				return
			}
		}
		yield(Attempt{Locator: cfg.DefaultLocator, Profile: cfg.DefaultProfile, DepthSource: DepthFromCandidate, Depth: candidate.Depth})
	}
}

// originLocator returns the locator and profile recorded on the origin, falling back
// to the configured defaults for whichever is missing
func (c Config) originLocator(origin *models.Origin) (string, string) {
	locator, profile := origin.MethodID, origin.EarthModelID
	if locator == "" {
		locator = c.DefaultLocator
	}
	if profile == "" {
		profile = c.DefaultProfile
	}
	return locator, profile
}

// depthPolicy returns the depth to pin for an attempt, or nil for a free depth.
// A configured override always wins; otherwise the starting depth is pinned when
// its uncertainty is unset or within tolerance of zero.
func (c Config) depthPolicy(depth *models.RealQuantity) *float64 {
	if c.FixedDepth != nil {
		v := *c.FixedDepth
		return &v
	}
	if depth == nil {
		return nil
	}
	if depth.Uncertainty == nil || isClose(*depth.Uncertainty, 0, relativeTolerance, c.DepthUncertaintyTolerance) {
		v := depth.Value
		return &v
	}
	return nil
}

func isClose(a, b, relTol, absTol float64) bool {
	if a == b {
		return true
	}
	diff := math.Abs(a - b)
	return diff <= math.Max(relTol*math.Max(math.Abs(a), math.Abs(b)), absTol)
}
