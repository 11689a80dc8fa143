package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"sidehug/worker"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the mention poller and the trend crawler",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Signal handling for systemd
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			s := <-sigc
			slog.Info("received signal, shutting down", "signal", s.String())
			cancel()
		}()

		if err := a.login(ctx); err != nil {
			return err
		}
		a.pingRedis(ctx)

		var ws []worker.Worker
		if !cfg.Bot.Disabled {
			d, err := a.dispatcher()
			if err != nil {
				return err
			}
			ws = append(ws, &worker.MentionPoller{
				Dispatcher: d,
				Auth:       a.bsky,
				Interval:   a.dur.PollInterval,
				Jitter:     cfg.Crawl.Jitter,
			})
		}
		if !cfg.Crawl.Disabled {
			eng, err := a.engine()
			if err != nil {
				return err
			}
			tc := &worker.TrendCrawler{
				Engine:   eng,
				Auth:     a.bsky,
				Interval: a.dur.CrawlInterval,
				Jitter:   cfg.Crawl.Jitter,
			}
			if cfg.Crawl.Digest {
				tc.DigestDir = cfg.App.OutputDir
			}
			ws = append(ws, tc)
		}
		if len(ws) == 0 {
			return errors.New("nothing to run: both bot and crawl are disabled")
		}
		if cfg.Metrics.Addr != "" {
			ws = append(ws, &worker.MetricsServer{Addr: cfg.Metrics.Addr})
		}

		mgr := worker.NewManager(ws...)
		if err := mgr.Start(ctx); err != nil {
			return err
		}
		slog.Info("shutdown complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
