package cmd

import (
	"context"
	"fmt"
	"time"

	"sidehug/internal/digest"

	"github.com/spf13/cobra"
)

var crawlDigest bool

// crawlCmd runs a single trend crawl cycle and exits.
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run one category crawl and trend analysis",
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
		eng, err := a.engine()
		if err != nil {
			return err
		}
		res, err := eng.RunCycle(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for name, n := range res.Categories {
			fmt.Fprintf(out, "category %-16s %d posts\n", name, n)
		}
		for _, r := range res.Reports {
			fmt.Fprintf(out, "topic    %-16s %d posts, %d hashtags\n", r.Topic, r.PostMetrics.TotalPosts, len(r.TopHashtags))
		}
		if res.FailedSearches > 0 || res.FailedSaves > 0 {
			fmt.Fprintf(out, "failed searches: %d, failed saves: %d\n", res.FailedSearches, res.FailedSaves)
		}
		if crawlDigest && len(res.Reports) > 0 {
			d := digest.FromReports("Bluesky trends {.CurrentDate} {.CurrentTime}", "", res.Reports, time.Now(), 200)
			path, err := digest.Write(a.cfg.App.OutputDir, d)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "digest written to %s\n", path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(crawlCmd)
	crawlCmd.Flags().BoolVar(&crawlDigest, "digest", false, "also render the markdown digest into app.output_dir")
}
