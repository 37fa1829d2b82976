package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/mechstereo/internal/application/expansion"
	"github.com/turtacn/mechstereo/internal/infrastructure/mechfile"
)

// NewGraphCmd creates the graph command.  It prints the formula buckets of
// a mechanism with the connected components of each bucket's PES graph and
// needs no oracle.
func NewGraphCmd() *cobra.Command {
	var mechanism string
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Show the PES graph and connected components of a mechanism",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.runContext(cmd.Context())
			defer cancel()

			mech, err := mechfile.ReadFile(mechanism)
			if err != nil {
				return err
			}
			summaries, err := newStatelessRuntime(cliCtx).service.Graph(ctx, mech)
			if err != nil {
				return err
			}
			return PrintResult(cmd, graphReport(summaries))
		},
	}
	cmd.Flags().StringVarP(&mechanism, "mechanism", "m", "", "input mechanism document (required)")
	_ = cmd.MarkFlagRequired("mechanism")
	return cmd
}

type graphReport []expansion.GraphSummary

func (g graphReport) String() string {
	var sb strings.Builder
	for _, s := range g {
		fmt.Fprintf(&sb, "%s: %d reactions, %d components\n", s.Formula, s.Reactions, len(s.Components))
		for _, c := range s.Components {
			fmt.Fprintf(&sb, "  component %d (%d reactions)\n", c.Index, len(c.Members))
			for _, k := range c.Keys() {
				fmt.Fprintf(&sb, "    %s\n", k)
			}
		}
		if len(s.Disconnected) > 0 {
			fmt.Fprintf(&sb, "  disconnected: %s\n", strings.Join(s.Disconnected, ", "))
		}
	}
	return sb.String()
}

func (g graphReport) TableHeaders() []string {
	return []string{"FORMULA", "COMPONENT", "REACTIONS", "MEMBERS"}
}

func (g graphReport) TableRows() [][]string {
	var rows [][]string
	for _, s := range g {
		for _, c := range s.Components {
			rows = append(rows, []string{s.Formula, strconv.Itoa(c.Index), strconv.Itoa(len(c.Members)), strings.Join(c.Keys(), "; ")})
		}
	}
	return rows
}
