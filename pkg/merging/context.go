package merging

import "github.com/Ramsey-B/fern/pkg/models"

// MergeContext is the working state of one event's merge attempt. It is created
// fresh per event and dropped when processing of that event ends.
type MergeContext struct {
	Primary   *models.Origin
	Secondary *models.Origin
	Merged    *models.Origin

	// UnknownArrivals holds arrivals whose station is absent from inventory. They
	// bypass the locator and are re-attached with weight 0 after relocation.
	UnknownArrivals []models.Arrival

	picks        map[string]*models.Pick
	deferredPick map[string]struct{}
}

func NewMergeContext() *MergeContext {
	return &MergeContext{
		picks:        make(map[string]*models.Pick),
		deferredPick: make(map[string]struct{}),
	}
}

// DeferArrival queues an unknown-station arrival unless its pick is already queued
func (c *MergeContext) DeferArrival(arrival models.Arrival) bool {
	if _, ok := c.deferredPick[arrival.PickID]; ok {
		return false
	}
	c.deferredPick[arrival.PickID] = struct{}{}
	c.UnknownArrivals = append(c.UnknownArrivals, arrival)
	return true
}

// IsDeferred reports whether the pick is queued as an unknown-station arrival
func (c *MergeContext) IsDeferred(pickID string) bool {
	_, ok := c.deferredPick[pickID]
	return ok
}

// Pick returns a pick loaded during this merge attempt
func (c *MergeContext) Pick(id string) (*models.Pick, bool) {
	p, ok := c.picks[id]
	return p, ok
}

func (c *MergeContext) addPick(p models.Pick) {
	pick := p
	c.picks[p.ID] = &pick
}

func (c *MergeContext) missingPicks(origins ...*models.Origin) []string {
	var missing []string
	seen := make(map[string]struct{})
	for _, origin := range origins {
		for _, arrival := range origin.Arrivals {
			if _, ok := c.picks[arrival.PickID]; ok {
				continue
			}
			if _, ok := seen[arrival.PickID]; ok {
				continue
			}
			seen[arrival.PickID] = struct{}{}
			missing = append(missing, arrival.PickID)
		}
	}
	return missing
}
