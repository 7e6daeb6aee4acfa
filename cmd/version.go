package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/tcgun/tavsiyece-sub000/internal/build"
)

// NewVersionCommand returns the command to get the tavsiyece version
func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Return the tavsiyece version",
		Long:  "Return the tavsiyece version.",
		RunE:  version,
		Args:  cobra.NoArgs,
	}

	return cmd
}

// print out the built version
func version(_ *cobra.Command, _ []string) error {
	log.Printf("tavsiyece version %s date %s commit id %s", build.Version, build.Date, build.Commit)
	return nil
}
