package cli

import (
	"context"
	"fmt"

	"github.com/ppiankov/newsguard/internal/render"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List your past scans, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return a.history(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func (a *app) history(ctx context.Context) error {
	user := a.cfg.User.ID
	if user == "" {
		_, _ = fmt.Fprintln(a.errOut, "No user id set (--user or NEWSGUARD_USER_ID); there is no history to show.")
	}

	var capture historyCapture
	sess := a.newSession(user, &capture)
	defer sess.Close()

	sess.Refresh(ctx)
	if capture.err != nil {
		return capture.err
	}

	if a.json {
		return render.JSON(a.out, capture.entries)
	}
	render.History(a.out, capture.entries, a.loc)
	return nil
}
