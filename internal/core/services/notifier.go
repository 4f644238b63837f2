package services

import (
	"context"
	"log/slog"

	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
	portssvc "github.com/redcross-vn/blood_bank_app/internal/core/ports/services"
	"github.com/redcross-vn/blood_bank_app/internal/middleware"
	"github.com/redcross-vn/blood_bank_app/internal/utils"
)

// logNotifier records every status change in the structured log. It is the
// default Notifier when no analytics backend is configured.
type logNotifier struct{}

// NewLogNotifier creates a Notifier that only logs events.
func NewLogNotifier() portssvc.Notifier {
	return &logNotifier{}
}

var _ portssvc.Notifier = (*logNotifier)(nil)

func (n *logNotifier) NotifyStatusChanged(ctx context.Context, event domain.StatusChangedEvent) {
	middleware.GetLoggerFromCtx(ctx).Info("status changed",
		slog.String("entity", event.Entity),
		slog.String("entity_id", event.EntityID),
		slog.String("from", event.OldStatus),
		slog.String("to", event.NewStatus),
		slog.String("actor_id", event.ActorID),
	)
}

// posthogNotifier forwards status changes to PostHog in addition to logging
// them. Enqueue is asynchronous, so a slow analytics backend never delays the
// transition that produced the event.
type posthogNotifier struct {
	client *utils.PosthogClientWrapper
	log    portssvc.Notifier
}

// NewPosthogNotifier creates a Notifier backed by the given PostHog client.
func NewPosthogNotifier(client *utils.PosthogClientWrapper) portssvc.Notifier {
	return &posthogNotifier{client: client, log: NewLogNotifier()}
}

var _ portssvc.Notifier = (*posthogNotifier)(nil)

func (n *posthogNotifier) NotifyStatusChanged(ctx context.Context, event domain.StatusChangedEvent) {
	n.log.NotifyStatusChanged(ctx, event)
	if n.client == nil || !n.client.IsInitialized() {
		return
	}
	n.client.Enqueue(event.ActorID, event.Entity+"_status_changed", map[string]any{
		"entity_id":  event.EntityID,
		"old_status": event.OldStatus,
		"new_status": event.NewStatus,
	})
}
