package cli

import (
	"github.com/spf13/cobra"

	"github.com/turtacn/mechstereo/internal/infrastructure/mechfile"
)

// NewStripCmd creates the strip command.
func NewStripCmd() *cobra.Command {
	var mechanism, out string
	cmd := &cobra.Command{
		Use:   "strip",
		Short: "Remove stereochemistry from a mechanism",
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
			stripped, err := newStatelessRuntime(cliCtx).service.RemoveStereochemistry(ctx, mech)
			if err != nil {
				return err
			}
			if out == "" {
				return mechfile.Write(cmd.OutOrStdout(), stripped)
			}
			return mechfile.WriteFile(out, stripped)
		},
	}
	cmd.Flags().StringVarP(&mechanism, "mechanism", "m", "", "input mechanism document (required)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output mechanism document (default: stdout)")
	_ = cmd.MarkFlagRequired("mechanism")
	return cmd
}
