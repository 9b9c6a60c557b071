// Package inventory answers station presence questions from the network inventory.
package inventory

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/pkg/errors"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Epoch is one operating period of a station. A nil End means still operating.
type Epoch struct {
	NetworkCode string     `json:"network_code" db:"network_code"`
	StationCode string     `json:"station_code" db:"station_code"`
	Start       time.Time  `json:"start_time" db:"start_time"`
	End         *time.Time `json:"end_time,omitempty" db:"end_time"`
	Latitude    float64    `json:"latitude" db:"latitude"`
	Longitude   float64    `json:"longitude" db:"longitude"`
	Elevation   float64    `json:"elevation" db:"elevation"`
}

// Contains reports whether the station was operating at t
func (e Epoch) Contains(t time.Time) bool {
	if t.Before(e.Start) {
		return false
	}
	return e.End == nil || t.Before(*e.End)
}

// Network is a network with all of its station epochs
type Network struct {
	Code        string  `db:"code"`
	Description string  `db:"description"`
	Stations    []Epoch `db:"-"`
}

// EpochSource loads the epochs of a single station
type EpochSource interface {
	StationEpochs(ctx context.Context, networkCode, stationCode string) ([]Epoch, error)
}

// Presence answers whether a station was operating at a given time
type Presence interface {
	StationExists(ctx context.Context, networkCode, stationCode string, at time.Time) (bool, error)
}

var epochColumns = []string{"network_code", "station_code", "start_time", "end_time", "latitude", "longitude", "elevation"}

// Repository reads the station inventory
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// StationEpochs returns every epoch of the station ordered by start time
func (r *Repository) StationEpochs(ctx context.Context, networkCode, stationCode string) ([]Epoch, error) {
	ctx, span := tracing.StartSpan(ctx, "inventory.Repository.StationEpochs")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(epochColumns...)
	sb.From("stations")
	sb.Where(
		sb.Equal("network_code", networkCode),
		sb.Equal("station_code", stationCode),
	)
	sb.OrderBy("start_time")

	query, args := sb.Build()
	var epochs []Epoch
	if err := database.QuerierFrom(ctx, r.db).SelectContext(ctx, &epochs, query, args...); err != nil {
		return nil, errors.Wrapf(err, "failed to load epochs of station %s.%s", networkCode, stationCode)
	}
	return epochs, nil
}

// StationExists reports whether the station was operating at the given time
func (r *Repository) StationExists(ctx context.Context, networkCode, stationCode string, at time.Time) (bool, error) {
	epochs, err := r.StationEpochs(ctx, networkCode, stationCode)
	if err != nil {
		return false, err
	}
	return anyContains(epochs, at), nil
}

// ListNetworks loads every network together with its station epochs
func (r *Repository) ListNetworks(ctx context.Context) ([]Network, error) {
	ctx, span := tracing.StartSpan(ctx, "inventory.Repository.ListNetworks")
	defer span.End()

	q := database.QuerierFrom(ctx, r.db)

	nb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	nb.Select("code", "description")
	nb.From("networks")
	nb.OrderBy("code")

	query, args := nb.Build()
	var networks []Network
	if err := q.SelectContext(ctx, &networks, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to list networks")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(epochColumns...)
	sb.From("stations")
	sb.OrderBy("network_code", "station_code", "start_time")

	query, args = sb.Build()
	var epochs []Epoch
	if err := q.SelectContext(ctx, &epochs, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to list stations")
	}

	index := make(map[string]int, len(networks))
	for i := range networks {
		index[networks[i].Code] = i
	}
	for _, epoch := range epochs {
		if i, ok := index[epoch.NetworkCode]; ok {
			networks[i].Stations = append(networks[i].Stations, epoch)
		}
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"networks": len(networks),
		"epochs":   len(epochs),
	}).Debug("Loaded station inventory")
	return networks, nil
}

func anyContains(epochs []Epoch, at time.Time) bool {
	for _, epoch := range epochs {
		if epoch.Contains(at) {
			return true
		}
	}
	return false
}
