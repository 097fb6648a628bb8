package models

import "time"

type EventType string

const (
	EventIdentityCreated EventType = "identity.created"
	EventIdentityUpdated EventType = "identity.updated"
	EventIdentityDeleted EventType = "identity.deleted"
	EventContextCreated  EventType = "context.created"
	EventContextUpdated  EventType = "context.updated"
	EventContextDeleted  EventType = "context.deleted"
	EventIdentityAdded   EventType = "context.identity_added"
	EventIdentityRemoved EventType = "context.identity_removed"
)

// Event describes a committed change to one of an account's resources.
type Event struct {
	Type       EventType `json:"type"`
	AccountID  int64     `json:"account_id"`
	ResourceID int64     `json:"resource_id"`
	ContextID  int64     `json:"context_id,omitempty"`
	At         time.Time `json:"at"`
}
