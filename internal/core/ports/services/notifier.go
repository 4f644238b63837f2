package services

import (
	"context"

	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
)

// Notifier receives one StatusChangedEvent per successful workflow transition.
// Delivery is best-effort: a failed send must never roll back the transition
// that produced the event, so implementations return no error.
type Notifier interface {
	NotifyStatusChanged(ctx context.Context, event domain.StatusChangedEvent)
}
