package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var syncDryRun bool

var syncCmd = &cobra.Command{
	Use:   "sync-permissions",
	Short: "Create stored permissions for every identifier in the registry",
	Long: `Compare the built-in permission registry with the database, create the
missing permissions and list stored permissions the registry no longer
declares. Nothing is ever deleted.`,
	Run: func(cmd *cobra.Command, args []string) {
		deps, err := initializeDependencies()
		if err != nil {
			log.Fatalf("failed to initialize dependencies: %v", err)
		}
		defer deps.Close()

		report, err := deps.Syncer.Sync(context.Background(), syncDryRun)
		if err != nil {
			deps.Close()
			log.Fatalf("sync permissions: %v", err)
		}

		verb := "Created"
		if report.DryRun {
			verb = "Would create"
		}
		fmt.Printf("%s %d permission(s)\n", verb, len(report.Created))
		for _, name := range report.Created {
			fmt.Println("  +", name)
		}
		fmt.Printf("Orphaned %d permission(s)\n", len(report.Orphaned))
		for _, name := range report.Orphaned {
			fmt.Println("  ?", name)
		}
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "report what would change without writing")
}
