package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevel string

	ctx := newCommandContext(&configFlag, &logLevel)

	rootCmd := &cobra.Command{
		Use:           "petctl",
		Short:         "Inspect and preview desktop pet animations",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Pet config file (defaults to the built-in pet)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level for loading and playback")

	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newFamiliesCommand(ctx))
	rootCmd.AddCommand(newResolveCommand(ctx))
	rootCmd.AddCommand(newPlayCommand(ctx))

	return rootCmd
}
