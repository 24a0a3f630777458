package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvkit/mvkit"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that the media tools can be found",
		RunE: func(cmd *cobra.Command, args []string) error {
			kit, err := ctx.toolkit()
			if err != nil {
				return err
			}
			statuses := kit.CheckTools()

			out := cmd.OutOrStdout()
			if ctx.flags.json {
				if err := json.NewEncoder(out).Encode(statuses); err != nil {
					return err
				}
			} else {
				cfg := kit.Config()
				fmt.Fprintf(out, "Mode: %s\n", cfg.Environment.Mode)
				fmt.Fprintln(out, renderTable(
					[]string{"Tool", "Command", "Status", "Detail"},
					statusRows(statuses),
					nil,
				))
			}

			missing := 0
			for _, s := range statuses {
				if !s.Available && !s.Optional {
					missing++
				}
			}
			if missing > 0 {
				return fmt.Errorf("%d required tool(s) missing", missing)
			}
			return nil
		},
	}
}

func statusRows(statuses []mvkit.ToolStatus) [][]string {
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		state := "ok"
		detail := s.Path
		if !s.Available {
			state = "missing"
			if s.Optional {
				state = "optional"
			}
			detail = s.Detail
		}
		rows = append(rows, []string{s.Name, s.Command, state, detail})
	}
	return rows
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, appVersion)
			return nil
		},
	}
}
