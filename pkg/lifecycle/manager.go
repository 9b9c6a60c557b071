// Package lifecycle removes stale merged origins from events and publishes new ones,
// keeping the catalog and its subscribers consistent.
package lifecycle

import (
	"context"
	"strconv"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Store persists catalog mutations. Each call is applied atomically.
type Store interface {
	RemoveOrigin(ctx context.Context, event *models.Event, originID string) error
	PublishOrigin(ctx context.Context, event *models.Event, origin *models.Origin) error
}

// Publisher emits catalog mutation messages
type Publisher interface {
	PublishRemoval(ctx context.Context, notification *models.Notification) error
	PublishCreation(ctx context.Context, notification *models.Notification) error
	PublishJournal(ctx context.Context, entry *models.JournalEntry) error
}

type Config struct {
	// DryRun computes every mutation but skips persisting and emitting it
	DryRun bool
	Author string
}

// Manager applies removals and publications of merged origins
type Manager struct {
	logger    ectologger.Logger
	store     Store
	publisher Publisher
	cfg       Config
	now       func() time.Time
}

func NewManager(logger ectologger.Logger, store Store, publisher Publisher, cfg Config) *Manager {
	return &Manager{
		logger:    logger,
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Remove detaches merged from event. When merged was preferred, the first remaining
// origin reference becomes preferred. A journal entry asking for a preferred origin
// update is emitted with every removal.
func (m *Manager) Remove(ctx context.Context, event *models.Event, merged *models.Origin) (*models.Notification, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Manager.Remove", tracing.EventID(event.ID), tracing.OriginID(merged.ID))
	defer span.End()

	updated := *event
	updated.OriginReferences = append([]string(nil), event.OriginReferences...)
	updated.RemoveOriginReference(merged.ID)

	var changes []models.Change
	if updated.PreferredOriginID == merged.ID {
		updated.PreferredOriginID = ""
		if len(updated.OriginReferences) > 0 {
			updated.PreferredOriginID = ectolinq.First(updated.OriginReferences)
		}
		changes = append(changes, models.Change{
			Operation:  models.OperationUpdate,
			ObjectType: models.ObjectTypeEvent,
			Object:     &updated,
		})
	}
	changes = append(changes,
		models.Change{
			Operation:  models.OperationRemove,
			ObjectType: models.ObjectTypeOriginReference,
			ParentID:   updated.ID,
			Object:     models.OriginReference{EventID: updated.ID, OriginID: merged.ID},
		},
		models.Change{
			Operation:  models.OperationRemove,
			ObjectType: models.ObjectTypeOrigin,
			Object:     merged,
		},
	)

	notification := &models.Notification{
		Type:    models.NotificationTypeRemoval,
		EventID: updated.ID,
		Changes: changes,
		Journal: &models.JournalEntry{
			ID:       uuid.NewString(),
			ObjectID: updated.ID,
			Action:   models.JournalActionPreferredOrigin,
			Sender:   m.cfg.Author,
			Created:  m.now(),
		},
	}

	log := m.logger.WithContext(ctx).WithFields(map[string]any{
		"event_id":            updated.ID,
		"merged_origin_id":    merged.ID,
		"preferred_origin_id": updated.PreferredOriginID,
		"dry_run":             m.cfg.DryRun,
	})
	metrics.LifecycleMutations.WithLabelValues("removal", strconv.FormatBool(m.cfg.DryRun)).Inc()

	if m.cfg.DryRun {
		log.Info("Test mode: merged origin would be removed")
		return notification, nil
	}

	if err := m.store.RemoveOrigin(ctx, &updated, merged.ID); err != nil {
		return nil, err
	}
	if err := m.publisher.PublishRemoval(ctx, notification); err != nil {
		return nil, err
	}
	if err := m.publisher.PublishJournal(ctx, notification.Journal); err != nil {
		return nil, err
	}

	*event = updated
	log.Info("Removed merged origin")
	return notification, nil
}

// Publish adds origin to event and emits its creation
func (m *Manager) Publish(ctx context.Context, event *models.Event, origin *models.Origin) (*models.Notification, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Manager.Publish", tracing.EventID(event.ID), tracing.OriginID(origin.ID))
	defer span.End()

	updated := *event
	updated.OriginReferences = append([]string(nil), event.OriginReferences...)
	updated.AddOriginReference(origin.ID)

	notification := &models.Notification{
		Type:    models.NotificationTypePublication,
		EventID: updated.ID,
		Changes: []models.Change{
			{
				Operation:  models.OperationAdd,
				ObjectType: models.ObjectTypeOrigin,
				Object:     origin,
			},
			{
				Operation:  models.OperationAdd,
				ObjectType: models.ObjectTypeOriginReference,
				ParentID:   updated.ID,
				Object:     models.OriginReference{EventID: updated.ID, OriginID: origin.ID},
			},
		},
	}

	log := m.logger.WithContext(ctx).WithFields(map[string]any{
		"event_id":  updated.ID,
		"origin_id": origin.ID,
		"arrivals":  origin.ArrivalCount(),
		"dry_run":   m.cfg.DryRun,
	})
	metrics.LifecycleMutations.WithLabelValues("publication", strconv.FormatBool(m.cfg.DryRun)).Inc()

	if m.cfg.DryRun {
		log.Info("Test mode: merged origin would be published")
		return notification, nil
	}

	if err := m.store.PublishOrigin(ctx, &updated, origin); err != nil {
		return nil, err
	}
	if err := m.publisher.PublishCreation(ctx, notification); err != nil {
		return nil, err
	}

	*event = updated
	log.Info("Published merged origin")
	return notification, nil
}
