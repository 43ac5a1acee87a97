// Command marketplacectl - операторские задачи: миграции баз сервисов
// и отладка курсоров пагинации.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	serviceName string
	databaseURL string
	downSteps   int
)

var rootCmd = &cobra.Command{
	Use:           "marketplacectl",
	Short:         "Operator CLI for the marketplace services",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env необязателен, как и у сервисов
		_ = godotenv.Load()
	},
}

func init() {
	migrateCmd.PersistentFlags().StringVarP(&serviceName, "service", "s", "", "Service whose schema to manage: listing or messaging (required)")
	migrateCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres URL (default: $DATABASE_URL)")
	_ = migrateCmd.MarkPersistentFlagRequired("service")
	migrateDownCmd.Flags().IntVarP(&downSteps, "steps", "n", 1, "Number of migrations to roll back")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	cursorCmd.AddCommand(cursorDecodeCmd)

	rootCmd.AddCommand(migrateCmd, cursorCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
