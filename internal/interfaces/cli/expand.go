package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/mechstereo/internal/application/expansion"
	"github.com/turtacn/mechstereo/internal/domain/reaction"
	"github.com/turtacn/mechstereo/internal/infrastructure/mechfile"
	"github.com/turtacn/mechstereo/internal/infrastructure/monitoring/logging"
)

type expandOptions struct {
	mechanism         string
	out               string
	workers           int
	removeEnantiomers bool
	metricsFile       string
	purgeCache        bool
}

// NewExpandCmd creates the expand command.
func NewExpandCmd() *cobra.Command {
	opts := &expandOptions{}
	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Expand a mechanism into its stereo-consistent sub-networks",
		Long: "Expand reads a mechanism without stereochemistry, enumerates the stereo variants\n" +
			"of every reaction through the configured oracle, splits each connected component\n" +
			"into stereo-consistent groups and writes the rebuilt mechanism.",
		Example: "  mechstereo expand -m butanol.yaml -o butanol-stereo.yaml --remove-enantiomers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runExpand(cmd, cliCtx, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.mechanism, "mechanism", "m", "", "input mechanism document (required)")
	f.StringVarP(&opts.out, "out", "o", "", "output mechanism document (default: stdout)")
	f.IntVar(&opts.workers, "workers", 0, "expansion workers; overrides expansion.workers")
	f.BoolVar(&opts.removeEnantiomers, "remove-enantiomers", false, "drop groups that mirror an earlier group")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	f.BoolVar(&opts.purgeCache, "purge-cache", false, "drop cached expansions before running")
	_ = cmd.MarkFlagRequired("mechanism")
	return cmd
}

func runExpand(cmd *cobra.Command, cliCtx *CLIContext, opts *expandOptions) error {
	ctx, cancel := cliCtx.runContext(cmd.Context())
	defer cancel()
	log := cliCtx.Logger

	mech, err := mechfile.ReadFile(opts.mechanism)
	if err != nil {
		return err
	}

	metricsFile := opts.metricsFile
	if metricsFile == "" {
		metricsFile = cliCtx.Config.Metrics.Textfile
	}
	rt, err := newExpansionRuntime(cliCtx, metricsFile != "")
	if err != nil {
		return err
	}
	defer rt.Close()

	if opts.purgeCache {
		if err := rt.purgeCache(ctx); err != nil {
			return err
		}
	}

	if !expansion.ValidEnantiomerically(rt.toolkit, mech) {
		log.Warn("input species table holds an enantiomer pair", logging.String("mechanism", opts.mechanism))
	}

	res, err := rt.service.Expand(ctx, mech, expansion.Options{
		RemoveEnantiomerDuplicates: opts.removeEnantiomers || cliCtx.Config.Expansion.RemoveEnantiomerDuplicates,
		Workers:                    opts.workers,
	})
	if err != nil {
		return err
	}

	if err := rt.writeMetrics(metricsFile); err != nil {
		log.Warn("metrics export failed", logging.Err(err))
	}

	if opts.out == "" {
		return mechfile.Write(cmd.OutOrStdout(), res.Mechanism)
	}
	if err := mechfile.WriteFile(opts.out, res.Mechanism); err != nil {
		return err
	}
	return PrintResult(cmd, newExpandReport(res, opts.out))
}

// expandReport summarizes an expansion written to a file.
type expandReport struct {
	RunID       string             `json:"run_id"`
	Output      string             `json:"output"`
	ArtifactKey string             `json:"artifact_key,omitempty"`
	Stats       expansion.Stats    `json:"stats"`
	Components  []componentSummary `json:"components"`
}

type componentSummary struct {
	Formula string   `json:"formula"`
	Index   int      `json:"index"`
	Members []string `json:"members"`
	Groups  []int    `json:"groups"`
}

func newExpandReport(res *expansion.Result, out string) expandReport {
	r := expandReport{RunID: res.RunID, Output: out, ArtifactKey: res.ArtifactKey, Stats: res.Stats}
	for _, c := range res.Components {
		cs := componentSummary{Formula: c.Formula, Index: c.Index, Members: keys(c.Members)}
		for _, g := range c.Groups {
			cs.Groups = append(cs.Groups, len(g))
		}
		r.Components = append(r.Components, cs)
	}
	return r
}

func (r expandReport) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "run %s: %d components, %d groups, %d reactions, %d species -> %s\n",
		r.RunID, r.Stats.Components, r.Stats.Groups, r.Stats.Reactions, r.Stats.Species, r.Output)
	if r.ArtifactKey != "" {
		fmt.Fprintf(&sb, "archived as %s\n", r.ArtifactKey)
	}
	for _, c := range r.Components {
		fmt.Fprintf(&sb, "  %s #%d: %d reactions, group sizes %v\n", c.Formula, c.Index, len(c.Members), c.Groups)
	}
	return sb.String()
}

func (r expandReport) TableHeaders() []string {
	return []string{"FORMULA", "COMPONENT", "REACTIONS", "GROUPS"}
}

func (r expandReport) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Components))
	for _, c := range r.Components {
		sizes := make([]string, len(c.Groups))
		for i, n := range c.Groups {
			sizes[i] = strconv.Itoa(n)
		}
		rows = append(rows, []string{c.Formula, strconv.Itoa(c.Index), strconv.Itoa(len(c.Members)), strings.Join(sizes, ",")})
	}
	return rows
}

func keys(rs []reaction.Reaction) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Key()
	}
	return out
}
