package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/frahmantamala/pos-admin/internal/iam"
	"github.com/spf13/cobra"
)

var (
	seedAdminEmail    string
	seedAdminPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed-permissions",
	Short: "Seed permissions, default policies, default roles and the admin user",
	Long: `Sync the permission registry, then create the FullAccess, per-area and
OrderViewAccess policies, the owner, manager, cashier and staff roles, and
optionally a superuser holding the owner role. Safe to run repeatedly.`,
	Run: func(cmd *cobra.Command, args []string) {
		deps, err := initializeDependencies()
		if err != nil {
			log.Fatalf("failed to initialize dependencies: %v", err)
		}
		defer deps.Close()

		email := seedAdminEmail
		if email == "" {
			email = deps.Config.IAM.AdminEmail
		}
		if email != "" && seedAdminPassword == "" {
			deps.Close()
			log.Fatalf("--admin-password is required when an admin email is set")
		}

		report, err := deps.Syncer.Seed(context.Background(), iam.SeedOptions{
			AdminEmail:    email,
			AdminPassword: seedAdminPassword,
		})
		if err != nil {
			deps.Close()
			log.Fatalf("seed permissions: %v", err)
		}

		fmt.Printf("Permissions created: %d, orphaned: %d\n", len(report.Sync.Created), len(report.Sync.Orphaned))
		for _, name := range report.Sync.Orphaned {
			fmt.Println("  ?", name)
		}
		fmt.Printf("Policies created: %v\n", report.PoliciesCreated)
		fmt.Printf("Roles created: %v\n", report.RolesCreated)
		if report.AdminCreated {
			fmt.Println("Seeded admin user:", email)
		}
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedAdminEmail, "admin-email", "", "email of the bootstrap superuser (defaults to iam.admin_email)")
	seedCmd.Flags().StringVar(&seedAdminPassword, "admin-password", "", "password of the bootstrap superuser")
}
