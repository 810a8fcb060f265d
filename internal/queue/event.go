// Package queue defines message payloads exchanged over the message broker
// and the RabbitMQ publisher and consumer that carry them.
package queue

import "time"

// EventType names a listing lifecycle event.
type EventType string

const (
	ListingCreated       EventType = "listing.created"
	TransactionStarted   EventType = "transaction.started"
	TransactionCompleted EventType = "transaction.completed"
	CommentPosted        EventType = "comment.posted"
	IntentCreated        EventType = "intent.created"
)

// Event is published after a lifecycle change has been committed.  It
// carries enough identifiers for downstream consumers to log or notify
// without querying the primary database.  CounterpartID is the other
// party of the action when there is one: the buyer for transaction
// events, the listing owner for intents and comments.
type Event struct {
	Type           EventType `json:"type"`
	ListingID      uint64    `json:"listing_id"`
	ListingName    string    `json:"listing_name"`
	OrganizationID uint64    `json:"organization_id"`
	ActorID        uint64    `json:"actor_id"`
	CounterpartID  *uint64   `json:"counterpart_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
