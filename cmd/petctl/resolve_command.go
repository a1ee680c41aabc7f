package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/milk9111/vpet/animation"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var mode string
	var count int

	cmd := &cobra.Command{
		Use:   "resolve <name>",
		Short: "Show which clip a playback request would pick",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := ctx.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer pc.catalog.Close()

			if mode == "" {
				mode = pc.cfg.DefaultMode
			}
			if count < 1 {
				count = 1
			}
			// One variant across every pick, so repeats show family stickiness.
			var v animation.Variant
			for range count {
				clip := pc.catalog.Resolve(args[0], mode, &v, nil)
				if clip == nil {
					return fmt.Errorf("no clip matches %q in mode %q", args[0], mode)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d frames\t%s\n", clip.Name, clip.Len(), clip.Duration())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Pet mode (defaults to the config default_mode)")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of picks")
	return cmd
}
