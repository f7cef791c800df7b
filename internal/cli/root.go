// Package cli handles the command-line interface logic
// using the Cobra library.
package cli

import (
	"github.com/spf13/cobra"
)

// Options are the flags shared by every sub-command.
type Options struct {
	ConfigFile string
}

func NewRootCmd() *cobra.Command {
	opts := &Options{}

	rootCmd := &cobra.Command{
		Use:   "moviesync",
		Short: "moviesync - incremental replication of the movie catalogue into a search index",
		Long: `moviesync polls the relational movie catalogue for rows changed since the
last checkpoint and upserts them, denormalized, into Elasticsearch or MongoDB.
Progress is checkpointed per stream after every written document.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "Path to an optional YAML config file")

	rootCmd.AddCommand(NewRunCmd(opts), NewCheckpointsCmd(opts))

	return rootCmd
}
