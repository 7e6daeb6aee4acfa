// Package cmd contains all the commands included in the binary file.
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand enables all children commands to read flags from CLI flags, environment variables prefixed with TAVSIYECE, or config.yaml (in that order).
func NewRootCommand() *cobra.Command {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("TAVSIYECE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	configPaths := []string{"/etc/tavsiyece", "$HOME/.tavsiyece", "."}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	return &cobra.Command{
		Use:   "tavsiyece",
		Short: "Operator tooling for the Tavsiyece feed and counter layer",
		Long: `Operator tooling for the Tavsiyece feed and counter layer.

It migrates the SQL datastores and runs the read paths of the app (home feed, popular feed,
saved list, social graph and notifications) as well as the counter reconciliation against
a configured datastore.`,
		SilenceUsage:      true,
		PersistentPreRunE: readConfigFile,
	}
}

// readConfigFile loads config.yaml from the first config path that has one.
// A missing file is not an error.
func readConfigFile(_ *cobra.Command, _ []string) error {
	err := viper.ReadInConfig()
	if err != nil && !errors.As(err, &viper.ConfigFileNotFoundError{}) {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}
