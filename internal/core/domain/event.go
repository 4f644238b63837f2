package domain

import "time"

// StatusChangedEvent is emitted after every successful workflow transition.
// Consumers (notifications, analytics) are outside the core; a failed delivery
// never rolls back the transition that produced the event.
type StatusChangedEvent struct {
	Entity     string    `json:"entity"` // "campaign_donation", "emergency_request" or "blood_unit"
	EntityID   string    `json:"entityID"`
	OldStatus  string    `json:"oldStatus"`
	NewStatus  string    `json:"newStatus"`
	ActorID    string    `json:"actorID"`
	OccurredAt time.Time `json:"occurredAt"`
}
