package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qepting91/review-scraper/internal/dashboard"
	"github.com/qepting91/review-scraper/internal/domain"
	"github.com/qepting91/review-scraper/internal/ingest"
)

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "reviewscraper",
		Short: "Collect user reviews for an application",
		Long: `A CLI tool for collecting user reviews of an application from the public
reviews endpoint, optionally limited to a date window, and saving them as JSON.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&a.sqlitePath, "sqlite", "", "also export results into this SQLite database")
	root.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after each run")

	root.AddCommand(newCollectCmd(a))
	root.AddCommand(newTestCmd(a))
	root.AddCommand(newBatchCmd(a))
	root.AddCommand(newShellCmd(a))
	root.AddCommand(newReportCmd())
	return root
}

func newCollectCmd(a *app) *cobra.Command {
	var (
		franchise string
		game      string
		count     int
		startDate string
		endDate   string
	)

	cmd := &cobra.Command{
		Use:   "collect [appId]",
		Short: "Collect reviews for one application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := ingest.FromFields([]string{args[0], franchise, game, strconv.Itoa(count), startDate, endDate})
			if err != nil {
				return err
			}
			_, err = a.run(cmd.Context(), q, cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().StringVar(&franchise, "franchise", "", "franchise label stored with the result")
	cmd.Flags().StringVar(&game, "game", "", "game label stored with the result")
	cmd.Flags().IntVar(&count, "count", domain.DefaultTargetCount, "maximum number of reviews to collect")
	cmd.Flags().StringVar(&startDate, "start", "", "start date (YYYY-MM-DD), inclusive")
	cmd.Flags().StringVar(&endDate, "end", "", "end date (YYYY-MM-DD), inclusive")
	return cmd
}

func newTestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: fmt.Sprintf("Run the built-in scenario (app %d, no date window)", ingest.TestAppID),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.run(cmd.Context(), ingest.TestQuery(), cmd.OutOrStdout())
			return err
		},
	}
}

func newBatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "batch [file.csv]",
		Short: "Collect every query listed in a CSV file, one after another",
		Long:  `The file needs a header row followed by rows of app_id,franchise,game[,count[,start[,end]]].`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queries, err := ingest.LoadQueries(args[0])
			if err != nil {
				return fmt.Errorf("failed to load queries: %w", err)
			}
			a.logger.Info("starting batch", "queries", len(queries))
			for _, q := range queries {
				if _, err := a.run(cmd.Context(), q, cmd.OutOrStdout()); err != nil {
					return err
				}
				if err := cmd.Context().Err(); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Read queries interactively until quit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.shell(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func (a *app) shell(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, `Enter "appId,franchise,game[,count[,start[,end]]]", "test", or "quit".`)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			return nil
		}

		q, err := ingest.ParseQuery(line)
		if err != nil {
			fmt.Fprintf(out, "invalid input: %v\n", err)
			continue
		}
		if _, err := a.run(ctx, q, out); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func newReportCmd() *cobra.Command {
	var (
		outPath string
		serve   string
	)

	cmd := &cobra.Command{
		Use:   "report [file.json]",
		Short: "Render charts for a saved collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if serve != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Serving report for %s on %s\n", args[0], serve)
				return dashboard.StartServer(args[0], serve)
			}
			if err := dashboard.WriteReport(args[0], outPath); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "report.html", "where to write the HTML report")
	cmd.Flags().StringVar(&serve, "serve", "", "serve the report on this address (e.g. :8080) instead of writing a file")
	return cmd
}
