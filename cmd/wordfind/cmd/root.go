// Package cmd provides the commands of the wordfind CLI.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/logger"
)

// NewRootCmd creates the root command for the wordfind CLI.
func NewRootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "wordfind",
		Short: "Search word grids from the command line",
		Long: `wordfind searches a letter grid for a list of words, reading each word
left to right along rows and top to bottom along columns, and prints the
ten words found most often.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			slog.SetDefault(logger.New(cmd.ErrOrStderr(), logLevel, "text"))
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	cmd.AddCommand(newFindCmd())
	cmd.AddCommand(newStrategiesCmd())
	cmd.AddCommand(newLoadtestCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
