// Package catalog persists events, origins and picks in Postgres.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/pkg/errors"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Repository handles catalog persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new catalog repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// LoadEvent retrieves an event and its ordered origin references
func (r *Repository) LoadEvent(ctx context.Context, id string) (*models.Event, error) {
	ctx, span := tracing.StartSpan(ctx, "catalog.Repository.LoadEvent")
	defer span.End()

	q := database.QuerierFrom(ctx, r.db)

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "preferred_origin_id", "agency_id", "author", "creation_time")
	sb.From("events")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var row eventRow
	if err := q.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("event %s not found", id))
		}
		return nil, errors.Wrapf(err, "failed to load event %s", id)
	}

	refs := sqlbuilder.PostgreSQL.NewSelectBuilder()
	refs.Select("origin_id")
	refs.From("origin_references")
	refs.Where(refs.Equal("event_id", id))
	refs.OrderBy("position")

	query, args = refs.Build()
	var originIDs []string
	if err := q.SelectContext(ctx, &originIDs, query, args...); err != nil {
		return nil, errors.Wrapf(err, "failed to load origin references of event %s", id)
	}

	event := row.toModel()
	event.OriginReferences = originIDs
	return event, nil
}

// LoadEventOrigins fully loads every origin the event references, in reference order.
// References to origins missing from the catalog are skipped.
func (r *Repository) LoadEventOrigins(ctx context.Context, event *models.Event) ([]*models.Origin, error) {
	ctx, span := tracing.StartSpan(ctx, "catalog.Repository.LoadEventOrigins")
	defer span.End()

	if len(event.OriginReferences) == 0 {
		return nil, nil
	}

	q := database.QuerierFrom(ctx, r.db)
	ids := sqlbuilder.Flatten(event.OriginReferences)

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(originColumns...)
	sb.From("origins")
	sb.Where(sb.In("id", ids...))

	query, args := sb.Build()
	var originRows []originRow
	if err := q.SelectContext(ctx, &originRows, query, args...); err != nil {
		return nil, errors.Wrapf(err, "failed to load origins of event %s", event.ID)
	}

	byID := make(map[string]*models.Origin, len(originRows))
	for _, row := range originRows {
		byID[row.ID] = row.toModel()
	}

	arrivals := sqlbuilder.PostgreSQL.NewSelectBuilder()
	arrivals.Select(arrivalColumns...)
	arrivals.From("arrivals")
	arrivals.Where(arrivals.In("origin_id", ids...))
	arrivals.OrderBy("origin_id", "position")

	query, args = arrivals.Build()
	var arrivalRows []arrivalRow
	if err := q.SelectContext(ctx, &arrivalRows, query, args...); err != nil {
		return nil, errors.Wrapf(err, "failed to load arrivals of event %s", event.ID)
	}
	for _, row := range arrivalRows {
		if origin, ok := byID[row.OriginID]; ok {
			origin.Arrivals = append(origin.Arrivals, row.toModel())
		}
	}

	mags := sqlbuilder.PostgreSQL.NewSelectBuilder()
	mags.Select(magnitudeColumns...)
	mags.From("magnitudes")
	mags.Where(mags.In("origin_id", ids...))
	mags.OrderBy("origin_id", "creation_time", "id")

	query, args = mags.Build()
	var magnitudeRows []magnitudeRow
	if err := q.SelectContext(ctx, &magnitudeRows, query, args...); err != nil {
		return nil, errors.Wrapf(err, "failed to load magnitudes of event %s", event.ID)
	}
	for _, row := range magnitudeRows {
		if origin, ok := byID[row.OriginID]; ok {
			origin.Magnitudes = append(origin.Magnitudes, row.toModel())
		}
	}

	staMags := sqlbuilder.PostgreSQL.NewSelectBuilder()
	staMags.Select(stationMagnitudeColumns...)
	staMags.From("station_magnitudes")
	staMags.Where(staMags.In("origin_id", ids...))
	staMags.OrderBy("origin_id", "creation_time", "id")

	query, args = staMags.Build()
	var stationMagnitudeRows []stationMagnitudeRow
	if err := q.SelectContext(ctx, &stationMagnitudeRows, query, args...); err != nil {
		return nil, errors.Wrapf(err, "failed to load station magnitudes of event %s", event.ID)
	}
	for _, row := range stationMagnitudeRows {
		if origin, ok := byID[row.OriginID]; ok {
			origin.StationMagnitudes = append(origin.StationMagnitudes, row.toModel())
		}
	}

	origins := make([]*models.Origin, 0, len(byID))
	for _, id := range event.OriginReferences {
		origin, ok := byID[id]
		if !ok {
			r.logger.WithContext(ctx).WithFields(map[string]any{
				"event_id":  event.ID,
				"origin_id": id,
			}).Warn("Event references an origin missing from the catalog")
			continue
		}
		origins = append(origins, origin)
	}
	return origins, nil
}

// ListEventIDs returns the events created within [begin, end], oldest first
func (r *Repository) ListEventIDs(ctx context.Context, begin, end time.Time) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "catalog.Repository.ListEventIDs")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id")
	sb.From("events")
	sb.Where(sb.Between("creation_time", begin, end))
	sb.OrderBy("creation_time", "id")

	query, args := sb.Build()
	var ids []string
	if err := database.QuerierFrom(ctx, r.db).SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, errors.Wrapf(err, "failed to list events between %s and %s", begin.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return ids, nil
}

// LoadPicks returns the picks that exist among ids. Unknown ids are absent from the result.
func (r *Repository) LoadPicks(ctx context.Context, ids []string) ([]models.Pick, error) {
	ctx, span := tracing.StartSpan(ctx, "catalog.Repository.LoadPicks")
	defer span.End()

	if len(ids) == 0 {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(pickColumns...)
	sb.From("picks")
	sb.Where(sb.In("id", sqlbuilder.Flatten(ids)...))

	query, args := sb.Build()
	var rows []pickRow
	if err := database.QuerierFrom(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to load picks")
	}

	picks := make([]models.Pick, 0, len(rows))
	for _, row := range rows {
		picks = append(picks, row.toModel())
	}
	return picks, nil
}

// RemoveOrigin deletes the origin and its reference from event and stores event's
// preferred origin, in one transaction
func (r *Repository) RemoveOrigin(ctx context.Context, event *models.Event, originID string) error {
	ctx, span := tracing.StartSpan(ctx, "catalog.Repository.RemoveOrigin")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin removal transaction")
	}
	defer tx.Rollback(ctx)

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("events")
	ub.Set(ub.Assign("preferred_origin_id", event.PreferredOriginID))
	ub.Where(ub.Equal("id", event.ID))

	query, args := ub.Build()
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "failed to update preferred origin of event %s", event.ID)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("event %s not found", event.ID))
	}

	refs := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	refs.DeleteFrom("origin_references")
	refs.Where(refs.Equal("event_id", event.ID), refs.Equal("origin_id", originID))

	query, args = refs.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "failed to remove reference to origin %s", originID)
	}

	origins := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	origins.DeleteFrom("origins")
	origins.Where(origins.Equal("id", originID))

	query, args = origins.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "failed to remove origin %s", originID)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit origin removal")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"event_id":  event.ID,
		"origin_id": originID,
	}).Debug("Removed origin from catalog")
	return nil
}

// PublishOrigin stores the origin with its arrivals and magnitudes and references it
// from event, in one transaction
func (r *Repository) PublishOrigin(ctx context.Context, event *models.Event, origin *models.Origin) error {
	ctx, span := tracing.StartSpan(ctx, "catalog.Repository.PublishOrigin")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin publication transaction")
	}
	defer tx.Rollback(ctx)

	if err := insertOrigin(ctx, tx, origin); err != nil {
		return err
	}

	position := len(event.OriginReferences) - 1
	for i, ref := range event.OriginReferences {
		if ref == origin.ID {
			position = i
			break
		}
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("origin_references")
	ib.Cols("event_id", "origin_id", "position")
	ib.Values(event.ID, origin.ID, position)

	query, args := ib.Build()
	query += " ON CONFLICT (event_id, origin_id) DO NOTHING"
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "failed to reference origin %s from event %s", origin.ID, event.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit origin publication")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"event_id":  event.ID,
		"origin_id": origin.ID,
		"arrivals":  origin.ArrivalCount(),
	}).Debug("Stored origin in catalog")
	return nil
}

func insertOrigin(ctx context.Context, q database.Querier, origin *models.Origin) error {
	row := newOriginRow(origin)

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("origins")
	ib.Cols(originColumns...)
	ib.Values(row.ID, row.Time, row.Latitude, row.Longitude, row.Depth, row.DepthUncertainty, row.EarthModelID,
		row.MethodID, row.EvaluationMode, row.EvaluationStatus, row.AgencyID, row.Author, row.CreationTime)

	query, args := ib.Build()
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "failed to insert origin %s", origin.ID)
	}

	if len(origin.Arrivals) > 0 {
		ab := sqlbuilder.PostgreSQL.NewInsertBuilder()
		ab.InsertInto("arrivals")
		ab.Cols(arrivalColumns...)
		for i, a := range origin.Arrivals {
			ab.Values(origin.ID, a.PickID, i, a.Phase, a.Weight, a.Distance, a.Azimuth, a.TimeResidual)
		}
		query, args = ab.Build()
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrapf(err, "failed to insert arrivals of origin %s", origin.ID)
		}
	}

	if len(origin.Magnitudes) > 0 {
		mb := sqlbuilder.PostgreSQL.NewInsertBuilder()
		mb.InsertInto("magnitudes")
		mb.Cols(magnitudeColumns...)
		for _, m := range origin.Magnitudes {
			mb.Values(m.ID, origin.ID, m.Type, m.Value, m.Uncertainty, m.StationCount, m.MethodID,
				m.CreationInfo.AgencyID, m.CreationInfo.Author, m.CreationInfo.CreationTime)
		}
		query, args = mb.Build()
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrapf(err, "failed to insert magnitudes of origin %s", origin.ID)
		}
	}

	if len(origin.StationMagnitudes) > 0 {
		sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
		sb.InsertInto("station_magnitudes")
		sb.Cols(stationMagnitudeColumns...)
		for _, m := range origin.StationMagnitudes {
			sb.Values(m.ID, origin.ID, m.Type, m.Value, m.AmplitudeID, m.WaveformID.NetworkCode, m.WaveformID.StationCode,
				m.WaveformID.LocationCode, m.WaveformID.ChannelCode, m.CreationInfo.AgencyID, m.CreationInfo.Author, m.CreationInfo.CreationTime)
		}
		query, args = sb.Build()
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrapf(err, "failed to insert station magnitudes of origin %s", origin.ID)
		}
	}

	return nil
}
