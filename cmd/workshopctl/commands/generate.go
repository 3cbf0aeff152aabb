package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/nbhdai/workshopctl/cmd/workshopctl/handlers"
)

// Generate returns the command that runs the config-generation pipeline.
//
// Environment variables:
//
//	GITHUB_USERNAME: container registry username (required)
//	GHCR_PAT:        container registry token (required)
func Generate() *cobra.Command {
	var opts handlers.GenerateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate per-node machine configs and the client credential bundle",
		Long: `Generate fully resolved Talos machine configurations.

The pipeline loads the cluster declaration, renders the CNI chart and the
registry auth patch, merges them with the committed patches and per-node
network identity, and writes one machine config per declared node plus a
talosconfig credential bundle.

Outputs are regenerated from scratch on every run; re-running after a
failure is always safe.

Examples:
  # Generate using cluster.env in the current directory
  workshopctl generate

  # Generate for a specific declaration and output directory
  workshopctl generate -c staging.env -o generated/configs`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Generate(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ClusterFile, "cluster", "c", "cluster.env", "Path to the cluster declaration")
	cmd.Flags().StringVar(&opts.PatchesDir, "patches", "patches", "Directory of committed patch fragments")
	cmd.Flags().StringVar(&opts.ValuesFile, "values", "values/cilium.yaml", "CNI chart values document")
	cmd.Flags().StringVar(&opts.ChartDir, "charts", "charts", "Directory of vendored Helm charts")
	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", "generated/configs", "Output directory for machine configs")
	cmd.Flags().StringVar(&opts.EphemeralDir, "ephemeral", "generated/secrets", "Ephemeral directory for generated secret fragments")
	cmd.Flags().DurationVar(&opts.RenderTimeout, "render-timeout", 2*time.Minute, "Timeout for the manifest-rendering stage")

	return cmd
}
