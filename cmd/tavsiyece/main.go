package main

import (
	"os"

	"github.com/tcgun/tavsiyece-sub000/cmd"
	"github.com/tcgun/tavsiyece-sub000/cmd/migrate"
	"github.com/tcgun/tavsiyece-sub000/cmd/query"
)

func main() {
	rootCmd := cmd.NewRootCommand()

	queryCmd := query.NewQueryCommand()
	rootCmd.AddCommand(queryCmd)

	migrateCmd := migrate.NewMigrateCommand()
	rootCmd.AddCommand(migrateCmd)

	versionCmd := cmd.NewVersionCommand()
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
