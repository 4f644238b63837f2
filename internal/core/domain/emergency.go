package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EmergencyStatus is the state of an urgent blood request.
type EmergencyStatus string

const (
	EmergencyPending          EmergencyStatus = "PENDING"
	EmergencyApproved         EmergencyStatus = "APPROVED"
	EmergencyRejected         EmergencyStatus = "REJECTED"
	EmergencyContactsProvided EmergencyStatus = "CONTACTS_PROVIDED"
	// EmergencyWaitForDonor is declared for future individual-requester flows
	// but is never produced by any operation.
	EmergencyWaitForDonor EmergencyStatus = "WAIT_FOR_DONOR"
)

// EmergencyRequest is an urgent request for blood from a hospital or an individual.
// A request is mutated at most once: by approval, rejection, or contact provision.
type EmergencyRequest struct {
	RequestID        string          `json:"requestID"`   // Primary Key (UUID)
	RequesterID      string          `json:"requesterID"` // FK -> users.user_id
	BloodType        BloodType       `json:"bloodType"`
	ComponentType    *ComponentType  `json:"componentType,omitempty"` // nil means whole blood
	RequiredVolumeMl decimal.Decimal `json:"requiredVolumeMl"`
	UsedVolumeMl     decimal.Decimal `json:"usedVolumeMl"`
	AssignedUnitID   *string         `json:"assignedUnitID,omitempty"`
	Status           EmergencyStatus `json:"status"`
	RejectionReason  *string         `json:"rejectionReason,omitempty"`
	SuggestedDonors  []string        `json:"suggestedDonors,omitempty"` // Donor user IDs, set by contact provision
	StartDate        time.Time       `json:"startDate"`
	EndDate          time.Time       `json:"endDate"` // StartDate + 1 day
	AuditFields
}

// Component returns the requested component, defaulting to whole blood.
func (r *EmergencyRequest) Component() ComponentType {
	if r.ComponentType == nil {
		return WholeBlood
	}
	return *r.ComponentType
}

// EmergencyRequestLog is an append-only audit entry for one request transition.
type EmergencyRequestLog struct {
	LogID      string          `json:"logID"`     // Primary Key (UUID)
	RequestID  string          `json:"requestID"` // FK -> emergency_requests
	ActorID    string          `json:"actorID"`
	FromStatus EmergencyStatus `json:"fromStatus"`
	ToStatus   EmergencyStatus `json:"toStatus"`
	Note       string          `json:"note"` // e.g. volume before/after on approval
	OccurredAt time.Time       `json:"occurredAt"`
}
