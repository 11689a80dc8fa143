package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// mentionsCmd answers the currently unread mentions once and exits.
var mentionsCmd = &cobra.Command{
	Use:   "mentions",
	Short: "Answer unread mentions once",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(GetConfig())
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		if err := a.login(ctx); err != nil {
			return err
		}
		a.pingRedis(ctx)
		d, err := a.dispatcher()
		if err != nil {
			return err
		}
		st, err := d.RunCycle(ctx)
		fmt.Fprintf(cmd.OutOrStdout(), "mentions: %d, completed: %d, replies: %d, reply failures: %d\n",
			st.Mentions, st.Completed, st.Replies, st.Failures)
		return err
	},
}

func init() {
	rootCmd.AddCommand(mentionsCmd)
}
