package cli

import (
	"context"

	"github.com/ppiankov/newsguard/internal/render"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the prediction model's statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return a.stats(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func (a *app) stats(ctx context.Context) error {
	stats, err := a.client().Stats(ctx)
	if err != nil {
		return err
	}
	if a.json {
		return render.JSON(a.out, stats)
	}
	render.Stats(a.out, stats)
	return nil
}
