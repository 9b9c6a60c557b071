// Package mocks provides in-memory fakes of the catalog, publisher and locator
// used by the package tests.
package mocks

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/fern/internal/repositories/inventory"
	"github.com/Ramsey-B/fern/pkg/models"
)

// Mutation is a recorded store write
type Mutation struct {
	Kind     string
	EventID  string
	OriginID string
}

// Catalog is an in-memory catalog. Stored objects are copied in and out so callers
// can never alias them.
type Catalog struct {
	mu       sync.Mutex
	events   map[string]*models.Event
	origins  map[string]*models.Origin
	picks    map[string]models.Pick
	stations map[string][]inventory.Epoch

	// Calls lists the invoked methods in order
	Calls     []string
	Mutations []Mutation
	// Errors makes the named method fail
	Errors map[string]error
}

func NewCatalog() *Catalog {
	return &Catalog{
		events:   map[string]*models.Event{},
		origins:  map[string]*models.Origin{},
		picks:    map[string]models.Pick{},
		stations: map[string][]inventory.Epoch{},
		Errors:   map[string]error{},
	}
}

// AddEvent stores the event and its origins, referencing each origin from the event
func (c *Catalog) AddEvent(event *models.Event, origins ...*models.Origin) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := cloneEvent(event)
	for _, origin := range origins {
		c.origins[origin.ID] = origin.Clone()
		stored.AddOriginReference(origin.ID)
	}
	c.events[stored.ID] = stored
}

func (c *Catalog) AddPicks(picks ...models.Pick) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, pick := range picks {
		c.picks[pick.ID] = pick
	}
}

// AddStation registers an operating epoch. A nil end leaves the station open.
func (c *Catalog) AddStation(networkCode, stationCode string, start time.Time, end *time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := networkCode + "." + stationCode
	c.stations[key] = append(c.stations[key], inventory.Epoch{
		NetworkCode: networkCode,
		StationCode: stationCode,
		Start:       start,
		End:         end,
	})
}

// Event returns a copy of the stored event
func (c *Catalog) Event(id string) *models.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	if event, ok := c.events[id]; ok {
		return cloneEvent(event)
	}
	return nil
}

// Origin returns a copy of the stored origin
func (c *Catalog) Origin(id string) *models.Origin {
	c.mu.Lock()
	defer c.mu.Unlock()
	if origin, ok := c.origins[id]; ok {
		return origin.Clone()
	}
	return nil
}

func (c *Catalog) call(name string) error {
	c.Calls = append(c.Calls, name)
	return c.Errors[name]
}

func (c *Catalog) LoadEvent(ctx context.Context, id string) (*models.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.call("LoadEvent"); err != nil {
		return nil, err
	}
	event, ok := c.events[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("event %s not found", id))
	}
	return cloneEvent(event), nil
}

func (c *Catalog) LoadEventOrigins(ctx context.Context, event *models.Event) ([]*models.Origin, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.call("LoadEventOrigins"); err != nil {
		return nil, err
	}
	var origins []*models.Origin
	for _, id := range event.OriginReferences {
		if origin, ok := c.origins[id]; ok {
			origins = append(origins, origin.Clone())
		}
	}
	return origins, nil
}

func (c *Catalog) ListEventIDs(ctx context.Context, begin, end time.Time) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.call("ListEventIDs"); err != nil {
		return nil, err
	}
	var events []*models.Event
	for _, event := range c.events {
		created := event.CreationInfo.CreationTime
		if !created.Before(begin) && !created.After(end) {
			events = append(events, event)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		a, b := events[i].CreationInfo.CreationTime, events[j].CreationInfo.CreationTime
		if a.Equal(b) {
			return events[i].ID < events[j].ID
		}
		return a.Before(b)
	})
	ids := make([]string, 0, len(events))
	for _, event := range events {
		ids = append(ids, event.ID)
	}
	return ids, nil
}

func (c *Catalog) LoadPicks(ctx context.Context, ids []string) ([]models.Pick, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.call("LoadPicks"); err != nil {
		return nil, err
	}
	var picks []models.Pick
	for _, id := range ids {
		if pick, ok := c.picks[id]; ok {
			picks = append(picks, pick)
		}
	}
	return picks, nil
}

func (c *Catalog) StationExists(ctx context.Context, networkCode, stationCode string, at time.Time) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.call("StationExists"); err != nil {
		return false, err
	}
	for _, epoch := range c.stations[networkCode+"."+stationCode] {
		if epoch.Contains(at) {
			return true, nil
		}
	}
	return false, nil
}

func (c *Catalog) RemoveOrigin(ctx context.Context, event *models.Event, originID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.call("RemoveOrigin"); err != nil {
		return err
	}
	c.events[event.ID] = cloneEvent(event)
	delete(c.origins, originID)
	c.Mutations = append(c.Mutations, Mutation{Kind: "remove", EventID: event.ID, OriginID: originID})
	return nil
}

func (c *Catalog) PublishOrigin(ctx context.Context, event *models.Event, origin *models.Origin) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.call("PublishOrigin"); err != nil {
		return err
	}
	c.events[event.ID] = cloneEvent(event)
	c.origins[origin.ID] = origin.Clone()
	c.Mutations = append(c.Mutations, Mutation{Kind: "publish", EventID: event.ID, OriginID: origin.ID})
	return nil
}

func cloneEvent(event *models.Event) *models.Event {
	clone := *event
	clone.OriginReferences = append([]string(nil), event.OriginReferences...)
	return &clone
}
