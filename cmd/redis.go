package cmd

import (
	"context"
	"fmt"
	"time"

	"sidehug/internal/redisclient"
	"sidehug/internal/storage"

	"github.com/spf13/cobra"
)

// redisCmd groups commands that inspect the crawl documents kept in Redis.
var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Inspect the Redis store",
}

var pingTimeout time.Duration

var redisPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check the Redis connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		rdb := redisclient.New(cfg.Redis)
		defer rdb.Close()

		res, err := redisclient.Ping(context.Background(), rdb, pingTimeout)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s db=%d\n", res, cfg.Redis.Addr, cfg.Redis.DB)
		return nil
	},
}

// redisListCmd prints the stored category buckets and trend topics, most
// recently updated first.
var redisListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored categories and trend topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		rdb := redisclient.New(GetConfig().Redis)
		defer rdb.Close()
		st := storage.NewRedisStore(rdb)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		out := cmd.OutOrStdout()
		cats, err := st.Categories(ctx)
		if err != nil {
			return err
		}
		for _, c := range cats {
			doc, err := st.CategoryPosts(ctx, c)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "category %-16s %4d posts  updated %s\n", c, len(doc.Posts), doc.UpdatedAt.Format(time.RFC3339))
		}
		topics, err := st.TrendTopics(ctx)
		if err != nil {
			return err
		}
		for _, t := range topics {
			r, err := st.TrendReport(ctx, t)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "topic    %-16s %4d posts  generated %s\n", t, r.PostMetrics.TotalPosts, r.GeneratedAt.Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
	redisCmd.AddCommand(redisPingCmd, redisListCmd)
	redisPingCmd.Flags().DurationVar(&pingTimeout, "timeout", 2*time.Second, "ping timeout")
}
