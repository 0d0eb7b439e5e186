package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/frahmantamala/pos-admin/internal/core/events"
	"github.com/frahmantamala/pos-admin/internal/iam"
	"github.com/frahmantamala/pos-admin/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish authorization change events through the audit log subscriber`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test IAM event",
	Long:  `Publish an IAM event to the event bus and print what the audit log records`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(args[0])
	},
}

var (
	eventSubject   string
	eventSubjectID int64
	eventObject    string
	eventObjectID  int64
)

func publishTestEvent(eventType string) error {
	if !strings.HasPrefix(eventType, "iam.") {
		return fmt.Errorf("unknown event type %q: IAM events start with \"iam.\"", eventType)
	}

	lg := logger.LoggerWrapper()
	bus := events.NewEventBus(lg)
	iam.RegisterAuditLog(bus, lg)

	evt := events.NewIAMEvent(eventType, nil, eventSubject, eventSubjectID, eventObject, eventObjectID)
	lg.Info("publishing test event", "event_type", eventType, "event_id", evt.EventID())

	if err := bus.PublishSync(context.Background(), evt); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	lg.Info("test event published successfully")
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventSubject, "subject", "role", "entity kind the event is about")
	publishEventCmd.Flags().Int64Var(&eventSubjectID, "subject-id", 1, "id of the subject")
	publishEventCmd.Flags().StringVar(&eventObject, "object", "", "associated entity kind, if any")
	publishEventCmd.Flags().Int64Var(&eventObjectID, "object-id", 0, "id of the associated entity")

	eventCmd.AddCommand(publishEventCmd)
}
