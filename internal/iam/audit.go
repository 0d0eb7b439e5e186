package iam

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/pos-admin/internal/core/events"
)

type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

// RegisterAuditLog writes every authorization graph change to the audit log.
func RegisterAuditLog(bus Subscriber, logger *slog.Logger) {
	audit := logger.With("component", "iam_audit")

	bus.Subscribe(events.AllEvents, func(ctx context.Context, event events.Event) error {
		evt, ok := event.(*events.IAMEvent)
		if !ok {
			return nil
		}

		attrs := []any{
			"event_id", evt.EventID(),
			"event_type", evt.EventType(),
			"subject", evt.Subject,
			"subject_id", evt.SubjectID,
			"occurred_at", evt.OccurredAt(),
		}
		if evt.Object != "" {
			attrs = append(attrs, "object", evt.Object, "object_id", evt.ObjectID)
		}
		if evt.ActorID != nil {
			attrs = append(attrs, "actor_id", *evt.ActorID)
		} else {
			attrs = append(attrs, "actor", "system")
		}

		audit.InfoContext(ctx, "iam change", attrs...)
		return nil
	})
}
