package cli

import (
	"github.com/spf13/cobra"
)

func NewRunCmd(opts *Options) *cobra.Command {
	var once, dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replicate changed rows into the search index until interrupted",
		RunE: func(c *cobra.Command, args []string) error {
			return runSync(c.Context(), opts, once, dryRun)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Run a single sweep over all streams and exit")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Extract and transform only; no writes, no checkpoints")
	return cmd
}

func NewCheckpointsCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoints",
		Short: "Print the committed watermark of every stream",
		RunE: func(c *cobra.Command, args []string) error {
			return listCheckpoints(c.Context(), opts, c.OutOrStdout())
		},
	}
}
