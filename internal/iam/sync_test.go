package iam_test

import (
	"context"

	"github.com/frahmantamala/pos-admin/internal/auth"
	iamDatamodel "github.com/frahmantamala/pos-admin/internal/core/datamodel/iam"
	userDatamodel "github.com/frahmantamala/pos-admin/internal/core/datamodel/user"
	"github.com/frahmantamala/pos-admin/internal/iam"
	"github.com/frahmantamala/pos-admin/internal/permission"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Syncer", func() {
	var (
		ctx context.Context
		e   *env
	)

	BeforeEach(func() {
		ctx = context.Background()
		e = newEnv(iam.RoleStaff)
	})

	Describe("Sync", func() {
		It("should report missing permissions without writing on a dry run", func() {
			report, err := e.syncer.Sync(ctx, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.DryRun).To(BeTrue())
			Expect(report.Created).To(Equal(e.registry.Identifiers()))

			stored, err := e.service.ListPermissions(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(BeEmpty())
		})

		It("should create every registry permission once", func() {
			first, err := e.syncer.Sync(ctx, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Created).To(HaveLen(e.registry.Len()))

			second, err := e.syncer.Sync(ctx, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Created).To(BeEmpty())
			Expect(second.Orphaned).To(BeEmpty())

			stored, err := e.service.ListPermissions(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(HaveLen(e.registry.Len()))

			p, err := e.service.GetPermissionByName(ctx, permission.OrderViewOrder)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Area).To(Equal(permission.AreaOrder))
		})

		It("should report stored permissions the registry no longer declares", func() {
			Expect(e.db.Create(&iamDatamodel.Permission{
				Name:        "legacy.view.report",
				Description: "Retired report screen",
				Area:        "legacy",
			}).Error).To(Succeed())

			report, err := e.syncer.Sync(ctx, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Orphaned).To(Equal([]string{"legacy.view.report"}))

			_, err = e.service.GetPermissionByName(ctx, "legacy.view.report")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Seed", func() {
		opts := iam.SeedOptions{AdminEmail: "owner@pos.test", AdminPassword: "owner-password"}

		It("should create the default graph and an active superuser", func() {
			report, err := e.syncer.Seed(ctx, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.AdminCreated).To(BeTrue())
			Expect(report.RolesCreated).To(ConsistOf(iam.RoleOwner, iam.RoleManager, iam.RoleCashier, iam.RoleStaff))
			Expect(report.PoliciesCreated).To(ContainElements(iam.PolicyFullAccess, iam.PolicyOrderViewAccess, "IAMFullAccess"))

			var admin userDatamodel.User
			Expect(e.db.Where("email = ?", "owner@pos.test").First(&admin).Error).To(Succeed())
			Expect(admin.IsSuperuser).To(BeTrue())
			Expect(admin.Status).To(Equal("active"))

			owner, err := e.service.GetRoleByName(ctx, iam.RoleOwner)
			Expect(err).NotTo(HaveOccurred())
			Expect(owner.IsSystem).To(BeTrue())
			Expect(admin.RoleID).NotTo(BeNil())
			Expect(*admin.RoleID).To(Equal(owner.ID))

			Expect(e.permissionsOf(admin.ID)).To(Equal(e.registry.Identifiers()))
		})

		It("should change nothing when run again", func() {
			_, err := e.syncer.Seed(ctx, opts)
			Expect(err).NotTo(HaveOccurred())
			roles, err := e.service.ListRoles(ctx)
			Expect(err).NotTo(HaveOccurred())

			again, err := e.syncer.Seed(ctx, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.AdminCreated).To(BeFalse())
			Expect(again.RolesCreated).To(BeEmpty())
			Expect(again.PoliciesCreated).To(BeEmpty())
			Expect(again.Sync.Created).To(BeEmpty())

			after, err := e.service.ListRoles(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(after).To(HaveLen(len(roles)))
		})

		It("should give the cashier order viewing and editing only", func() {
			_, err := e.syncer.Seed(ctx, iam.SeedOptions{})
			Expect(err).NotTo(HaveOccurred())
			cashier, err := e.service.GetRoleByName(ctx, iam.RoleCashier)
			Expect(err).NotTo(HaveOccurred())

			id := e.register("frank", "active", &cashier.ID).ID
			Expect(e.permissionsOf(id)).To(ConsistOf(
				permission.OrderCreateOrder,
				permission.OrderEditOrder,
				permission.OrderViewOrder,
			))
		})

		It("should protect the owner role from deletion", func() {
			_, err := e.syncer.Seed(ctx, iam.SeedOptions{})
			Expect(err).NotTo(HaveOccurred())
			owner, err := e.service.GetRoleByName(ctx, iam.RoleOwner)
			Expect(err).NotTo(HaveOccurred())

			_, err = e.service.AssignPermissionToRole(ctx, owner.ID, e.permissionID(permission.SettingsEditSystem), nil)
			Expect(err).NotTo(HaveOccurred())

			err = e.service.DeleteRole(ctx, owner.ID, iam.DeleteRoleOptions{Force: true})
			Expect(err).To(MatchError(iam.ErrProtectedEntity))

			detail, err := e.service.GetRoleDetail(ctx, owner.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(detail.Permissions).To(HaveLen(1))
			Expect(detail.Policies).To(HaveLen(1))
			Expect(detail.Policies[0].Name).To(Equal(iam.PolicyFullAccess))

			var rows int64
			Expect(e.db.Model(&iamDatamodel.RolePermission{}).Where("role_id = ?", owner.ID).Count(&rows).Error).To(Succeed())
			Expect(rows).To(Equal(int64(1)))
			Expect(e.db.Model(&iamDatamodel.RolePolicy{}).Where("role_id = ?", owner.ID).Count(&rows).Error).To(Succeed())
			Expect(rows).To(Equal(int64(1)))
		})

		It("should keep the owner role under its seeded name", func() {
			_, err := e.syncer.Seed(ctx, iam.SeedOptions{})
			Expect(err).NotTo(HaveOccurred())
			owner, err := e.service.GetRoleByName(ctx, iam.RoleOwner)
			Expect(err).NotTo(HaveOccurred())

			name := "Proprietor"
			_, err = e.service.UpdateRole(ctx, owner.ID, iam.UpdateRoleDTO{Name: &name})
			Expect(err).To(MatchError(iam.ErrProtectedEntity))

			again, err := e.syncer.Seed(ctx, iam.SeedOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(again.RolesCreated).To(BeEmpty())

			roles, err := e.service.ListRoles(ctx)
			Expect(err).NotTo(HaveOccurred())
			system := 0
			for _, r := range roles {
				if r.IsSystem {
					system++
				}
			}
			Expect(system).To(Equal(1))
		})

		It("should reject a suspended superuser at the gate", func() {
			_, err := e.syncer.Seed(ctx, opts)
			Expect(err).NotTo(HaveOccurred())

			Expect(e.db.Model(&userDatamodel.User{}).
				Where("email = ?", opts.AdminEmail).
				Update("status", "suspended").Error).To(Succeed())

			var admin userDatamodel.User
			Expect(e.db.Where("email = ?", opts.AdminEmail).First(&admin).Error).To(Succeed())

			gate := auth.NewGate(e.resolver, e.logger, auth.GateOptions{})
			d := gate.Decide(ctx, e.principalOf(admin.ID), permission.OrderViewOrder, "/api/v1/orders")
			Expect(d.Allowed()).To(BeFalse())
			Expect(d.Reason).To(Equal(auth.ReasonAccountInactive))
		})
	})
})
