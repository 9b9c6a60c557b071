package lifecycle_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/mocks"
	"github.com/Ramsey-B/fern/pkg/lifecycle"
	"github.com/Ramsey-B/fern/pkg/models"
)

func newManager(catalog *mocks.Catalog, publisher *mocks.Publisher, dryRun bool) *lifecycle.Manager {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return lifecycle.NewManager(logger, catalog, publisher, lifecycle.Config{DryRun: dryRun, Author: "fern"})
}

func seed() (*mocks.Catalog, *models.Event, *models.Origin) {
	primary := mocks.NewOrigin("primary", "GFZ", mocks.BaseTime)
	secondary := mocks.NewOrigin("secondary", "SED", mocks.BaseTime)
	merged := mocks.NewOrigin("merged", "MRG", mocks.BaseTime)

	catalog := mocks.NewCatalog()
	catalog.AddEvent(mocks.NewEvent("ev1", "merged"), primary, merged, secondary)
	return catalog, catalog.Event("ev1"), merged
}

func TestRemovePreferredMergedOrigin(t *testing.T) {
	catalog, event, merged := seed()
	publisher := &mocks.Publisher{}

	notification, err := newManager(catalog, publisher, false).Remove(context.Background(), event, merged)
	require.NoError(t, err)

	assert.Equal(t, "primary", event.PreferredOriginID)
	assert.Equal(t, []string{"primary", "secondary"}, event.OriginReferences)

	stored := catalog.Event("ev1")
	assert.Equal(t, "primary", stored.PreferredOriginID)
	assert.Nil(t, catalog.Origin("merged"))
	assert.Equal(t, []mocks.Mutation{{Kind: "remove", EventID: "ev1", OriginID: "merged"}}, catalog.Mutations)

	require.Len(t, notification.Changes, 3)
	assert.Equal(t, models.NotificationTypeRemoval, notification.Type)
	assert.Equal(t, models.ObjectTypeEvent, notification.Changes[0].ObjectType)
	assert.Equal(t, models.OperationUpdate, notification.Changes[0].Operation)
	assert.Equal(t, models.ObjectTypeOriginReference, notification.Changes[1].ObjectType)
	assert.Equal(t, "ev1", notification.Changes[1].ParentID)
	assert.Equal(t, models.ObjectTypeOrigin, notification.Changes[2].ObjectType)
	assert.Equal(t, models.OperationRemove, notification.Changes[2].Operation)

	require.Len(t, publisher.Removals, 1)
	require.Len(t, publisher.Journals, 1)
	journal := publisher.Journals[0]
	assert.Equal(t, models.JournalActionPreferredOrigin, journal.Action)
	assert.Equal(t, "ev1", journal.ObjectID)
	assert.Equal(t, "fern", journal.Sender)
}

func TestRemoveNonPreferredMergedOrigin(t *testing.T) {
	catalog, event, merged := seed()
	event.PreferredOriginID = "primary"

	notification, err := newManager(catalog, &mocks.Publisher{}, false).Remove(context.Background(), event, merged)
	require.NoError(t, err)

	assert.Equal(t, "primary", event.PreferredOriginID)
	require.Len(t, notification.Changes, 2)
	assert.Equal(t, models.ObjectTypeOriginReference, notification.Changes[0].ObjectType)
}

func TestRemoveLastReference(t *testing.T) {
	merged := mocks.NewOrigin("merged", "MRG", mocks.BaseTime)
	catalog := mocks.NewCatalog()
	catalog.AddEvent(mocks.NewEvent("ev1", "merged"), merged)
	event := catalog.Event("ev1")

	_, err := newManager(catalog, &mocks.Publisher{}, false).Remove(context.Background(), event, merged)
	require.NoError(t, err)
	assert.Empty(t, event.PreferredOriginID)
	assert.Empty(t, event.OriginReferences)
}

func TestRemoveDryRun(t *testing.T) {
	catalog, event, merged := seed()
	publisher := &mocks.Publisher{}

	notification, err := newManager(catalog, publisher, true).Remove(context.Background(), event, merged)
	require.NoError(t, err)

	require.NotNil(t, notification)
	assert.NotNil(t, notification.Journal)
	assert.Equal(t, "merged", event.PreferredOriginID)
	assert.Empty(t, catalog.Mutations)
	assert.Zero(t, publisher.Total())
	assert.NotNil(t, catalog.Origin("merged"))
}

func TestRemoveStoreFailureLeavesEvent(t *testing.T) {
	catalog, event, merged := seed()
	catalog.Errors["RemoveOrigin"] = errors.New("db down")
	publisher := &mocks.Publisher{}

	_, err := newManager(catalog, publisher, false).Remove(context.Background(), event, merged)
	assert.Error(t, err)
	assert.Equal(t, "merged", event.PreferredOriginID)
	assert.Zero(t, publisher.Total())
}

func TestPublish(t *testing.T) {
	catalog, event, _ := seed()
	publisher := &mocks.Publisher{}
	origin := mocks.NewOrigin("new", "MRG", mocks.BaseTime)

	notification, err := newManager(catalog, publisher, false).Publish(context.Background(), event, origin)
	require.NoError(t, err)

	assert.True(t, event.HasOriginReference("new"))
	assert.Equal(t, "merged", event.PreferredOriginID)
	assert.NotNil(t, catalog.Origin("new"))

	require.Len(t, notification.Changes, 2)
	assert.Equal(t, models.NotificationTypePublication, notification.Type)
	assert.Equal(t, models.ObjectTypeOrigin, notification.Changes[0].ObjectType)
	assert.Equal(t, models.OperationAdd, notification.Changes[0].Operation)
	assert.Equal(t, models.ObjectTypeOriginReference, notification.Changes[1].ObjectType)

	assert.Len(t, publisher.Creations, 1)
	assert.Empty(t, publisher.Removals)
	assert.Empty(t, publisher.Journals)
}

func TestPublishDryRun(t *testing.T) {
	catalog, event, _ := seed()
	publisher := &mocks.Publisher{}

	_, err := newManager(catalog, publisher, true).Publish(context.Background(), event, mocks.NewOrigin("new", "MRG", mocks.BaseTime))
	require.NoError(t, err)

	assert.False(t, event.HasOriginReference("new"))
	assert.Nil(t, catalog.Origin("new"))
	assert.Zero(t, publisher.Total())
}
