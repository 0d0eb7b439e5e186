package iam_test

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/frahmantamala/pos-admin/internal/core/events"
	"github.com/frahmantamala/pos-admin/internal/iam"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RegisterAuditLog", func() {
	It("should log graph changes with their actor", func() {
		var out bytes.Buffer
		lg := slog.New(slog.NewJSONHandler(&out, nil))
		bus := events.NewEventBus(lg)
		iam.RegisterAuditLog(bus, lg)

		actor := int64(5)
		evt := events.NewIAMEvent(events.EventTypePolicyAttached, &actor, "role", 3, "policy", 4)
		Expect(bus.PublishSync(context.Background(), evt)).To(Succeed())

		Expect(out.String()).To(ContainSubstring(`"component":"iam_audit"`))
		Expect(out.String()).To(ContainSubstring(`"event_type":"iam.policy.attached"`))
		Expect(out.String()).To(ContainSubstring(`"actor_id":5`))
		Expect(out.String()).To(ContainSubstring(`"object":"policy"`))
	})

	It("should mark system changes", func() {
		var out bytes.Buffer
		lg := slog.New(slog.NewJSONHandler(&out, nil))
		bus := events.NewEventBus(lg)
		iam.RegisterAuditLog(bus, lg)

		Expect(bus.PublishSync(context.Background(), events.NewIAMEvent(events.EventTypeRoleCreated, nil, "role", 1, "", 0))).To(Succeed())
		Expect(out.String()).To(ContainSubstring(`"actor":"system"`))
		Expect(out.String()).NotTo(ContainSubstring(`"object"`))
	})
})
