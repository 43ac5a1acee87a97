package main

import (
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"marketplace/pkg/postgres"
	listingmigrations "marketplace/services/listing-service/migrations"
	messagingmigrations "marketplace/services/messaging-service/migrations"

	"github.com/spf13/cobra"
)

// serviceMigrations - встроенные миграции каждого сервиса с базой.
var serviceMigrations = map[string]fs.FS{
	"listing":   listingmigrations.FS,
	"messaging": messagingmigrations.FS,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage a service database schema",
	Long: `Apply, roll back or inspect the embedded SQL migrations of a service.

Services: listing, messaging.
The database URL is taken from --database-url or DATABASE_URL.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the last --steps migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrateDown,
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE:  runMigrateVersion,
}

// migrationTarget проверяет флаги и возвращает миграции сервиса и URL базы.
func migrationTarget() (fs.FS, string, error) {
	migrations, ok := serviceMigrations[serviceName]
	if !ok {
		known := make([]string, 0, len(serviceMigrations))
		for name := range serviceMigrations {
			known = append(known, name)
		}
		sort.Strings(known)
		return nil, "", fmt.Errorf("unknown service %q (expected one of: %s)", serviceName, strings.Join(known, ", "))
	}

	url := databaseURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		return nil, "", fmt.Errorf("database URL is required: pass --database-url or set DATABASE_URL")
	}
	return migrations, url, nil
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	migrations, url, err := migrationTarget()
	if err != nil {
		return err
	}
	if err := postgres.Migrate(url, migrations, "."); err != nil {
		return err
	}
	return printVersion(cmd, url, migrations)
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	if downSteps <= 0 {
		return fmt.Errorf("--steps must be positive, got %d", downSteps)
	}
	migrations, url, err := migrationTarget()
	if err != nil {
		return err
	}
	if err := postgres.MigrateDown(url, migrations, ".", downSteps); err != nil {
		return err
	}
	return printVersion(cmd, url, migrations)
}

func runMigrateVersion(cmd *cobra.Command, args []string) error {
	migrations, url, err := migrationTarget()
	if err != nil {
		return err
	}
	return printVersion(cmd, url, migrations)
}

func printVersion(cmd *cobra.Command, url string, migrations fs.FS) error {
	version, dirty, err := postgres.MigrationVersion(url, migrations, ".")
	if err != nil {
		return err
	}
	if version == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: no migrations applied\n", serviceName)
		return nil
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: version %d (%s)\n", serviceName, version, state)
	return nil
}
