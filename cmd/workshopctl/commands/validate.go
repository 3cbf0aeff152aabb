package commands

import (
	"github.com/spf13/cobra"

	"github.com/nbhdai/workshopctl/cmd/workshopctl/handlers"
)

// Validate returns the command that checks a cluster declaration without
// generating anything.
func Validate() *cobra.Command {
	var clusterFile string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the cluster declaration",
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.Validate(clusterFile)
		},
	}

	cmd.Flags().StringVarP(&clusterFile, "cluster", "c", "cluster.env", "Path to the cluster declaration")

	return cmd
}
