package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/spf13/cobra"

	"github.com/milk9111/vpet/animation"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list [filter]",
		Short: "List every clip with its frames, duration and size",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := ctx.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer pc.catalog.Close()

			filter := ""
			if len(args) == 1 {
				filter = strings.ToLower(args[0])
			}
			var rows [][]string
			for _, clip := range pc.catalog.Clips() {
				if filter != "" && !strings.Contains(strings.ToLower(clip.Name), filter) {
					continue
				}
				rows = append(rows, clipRow(pc, clip))
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No clips")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(clipColumns, rows, isTerminal(cmd.OutOrStdout())))
			if pc.loadErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", pc.loadErr)
			}
			return nil
		},
	}
}

func clipRow(pc *petCatalog, clip *animation.Clip) []string {
	status := "ready"
	if err := clip.Err(); err != nil {
		status = "error: " + err.Error()
	} else if !clip.Ready() {
		status = "loading"
	}

	var size int64
	for _, f := range clip.Frames() {
		if n := pc.builder.Size(f.Path); n > 0 {
			size += n
		}
	}
	return []string{
		clip.Name,
		clip.FamilyKey(),
		strconv.Itoa(clip.Len()),
		durafmt.Parse(clip.Duration()).LimitFirstN(2).String(),
		humanize.Bytes(uint64(size)),
		status,
	}
}

func newFamiliesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "families",
		Short: "List the clip families used for sticky variant selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := ctx.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer pc.catalog.Close()
			for _, family := range pc.catalog.Families() {
				fmt.Fprintln(cmd.OutOrStdout(), family)
			}
			return nil
		},
	}
}
