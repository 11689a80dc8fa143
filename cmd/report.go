package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sidehug/internal/digest"
	"sidehug/internal/model"
	"sidehug/internal/storage"

	"github.com/spf13/cobra"
)

var (
	reportTitle string
	reportWrite bool
)

// reportCmd renders stored trend reports as markdown without crawling.
var reportCmd = &cobra.Command{
	Use:   "report [topic...]",
	Short: "Render the latest stored trend reports as markdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(GetConfig())
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		a.pingRedis(ctx)

		var src storage.ReportSource = a.files
		topics := args
		if a.store != nil {
			src = a.store
			if len(topics) == 0 {
				if topics, err = a.store.TrendTopics(ctx); err != nil {
					return err
				}
			}
		}
		if len(topics) == 0 {
			for _, t := range a.cfg.Crawl.Topics {
				topics = append(topics, t.Name)
			}
		}

		var reports []model.TrendReport
		for _, t := range topics {
			r, err := src.TrendReport(ctx, t)
			if errors.Is(err, storage.ErrNotFound) {
				fmt.Fprintf(cmd.ErrOrStderr(), "no report for topic %q\n", t)
				continue
			}
			if err != nil {
				return err
			}
			reports = append(reports, *r)
		}
		if len(reports) == 0 {
			return errors.New("no trend reports found; run crawl first")
		}

		d := digest.FromReports(reportTitle, "", reports, time.Now(), 200)
		if reportWrite {
			path, err := digest.Write(a.cfg.App.OutputDir, d)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		}
		md, err := digest.Render(d)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportTitle, "title", "Bluesky trends {.CurrentDate}", "digest title; supports {.CurrentDate} and {.CurrentTime}")
	reportCmd.Flags().BoolVar(&reportWrite, "write", false, "write to app.output_dir instead of stdout")
}
