package models

import "time"

// Operation is the kind of change applied to a catalog object
type Operation string

const (
	OperationAdd    Operation = "add"
	OperationUpdate Operation = "update"
	OperationRemove Operation = "remove"
)

// Object types carried in change lists
const (
	ObjectTypeEvent           = "event"
	ObjectTypeOrigin          = "origin"
	ObjectTypeOriginReference = "origin_reference"
)

// Change is one entry of a catalog change list
type Change struct {
	Operation  Operation `json:"operation"`
	ObjectType string    `json:"object_type"`
	ParentID   string    `json:"parent_id,omitempty"`
	Object     any       `json:"object"`
}

// OriginReference links an origin to an event in a change list
type OriginReference struct {
	EventID  string `json:"event_id"`
	OriginID string `json:"origin_id"`
}

// NotificationType selects the destination of a catalog mutation message
type NotificationType string

const (
	NotificationTypeRemoval     NotificationType = "removal"
	NotificationTypePublication NotificationType = "publication"
)

// Notification is a catalog mutation message. Changes are ordered parent before child.
type Notification struct {
	Type    NotificationType `json:"type"`
	EventID string           `json:"event_id"`
	Changes []Change         `json:"changes"`
	Journal *JournalEntry    `json:"journal,omitempty"`
}

// JournalActionPreferredOrigin asks the event owner to re-evaluate the preferred origin
const JournalActionPreferredOrigin = "EvPrefOrgID"

// JournalEntry is an auditable record of an intended catalog-state change
type JournalEntry struct {
	ID         string    `json:"id"`
	ObjectID   string    `json:"object_id"`
	Action     string    `json:"action"`
	Parameters string    `json:"parameters,omitempty"`
	Sender     string    `json:"sender"`
	Created    time.Time `json:"created"`
}
