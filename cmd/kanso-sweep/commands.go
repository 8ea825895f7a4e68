package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-duel/internal/app"
	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
	"github.com/comitanigiacomo/kanso-duel/internal/core/services"
)

type opener func(ctx context.Context) (*app.App, error)

func newRootCmd(out io.Writer, open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "kanso-sweep",
		Short:         "Settle finished challenges and maintain win/loss stats",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(
		newRunOnceCmd(open),
		newDaemonCmd(open),
		newRebuildStatsCmd(open),
		newMigrateCmd(open),
	)
	return root
}

func newRunOnceCmd(open opener) *cobra.Command {
	var asOf string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run-once",
		Short: "Complete every active challenge whose end date has been reached",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var report *services.SweepReport
			if asOf != "" {
				day, err := domain.ParseDate(asOf)
				if err != nil {
					return err
				}
				report, err = a.Challenges.SweepCompletions(cmd.Context(), day)
				if err != nil {
					return err
				}
			} else {
				report, err = a.Sweeper.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
			}

			return printReport(cmd.OutOrStdout(), report, asJSON)
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "settle as if today were this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func printReport(w io.Writer, report *services.SweepReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(w, "Sweep as of %s: examined=%d completed=%d skipped=%d failed=%d\n",
		domain.FormatDate(report.AsOf), report.Examined, report.Completed, report.Skipped, report.Failed)
	for _, o := range report.Outcomes {
		winner := "tie"
		if o.WinnerID != nil {
			winner = *o.WinnerID
		}
		fmt.Fprintf(w, "  %s  %.2f vs %.2f  winner=%s\n", o.ChallengeID, o.CreatorAverage, o.ChallengerAverage, winner)
	}
	return nil
}

func newDaemonCmd(open opener) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the sweep on SWEEP_INTERVAL until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.Logger.Error("Metrics server stopped", zap.Error(err))
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)

			a.Sweeper.Start(ctx)
			a.Sweeper.TriggerOn(ctx, hup)
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9091", "address for /metrics, empty to disable")
	return cmd
}

func newRebuildStatsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild-stats",
		Short: "Recompute every win/loss counter from completed challenges",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Leaderboard.RebuildStats(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Rebuilt stats for %d users\n", n)
			return nil
		},
	}
}

// newMigrateCmd relies on app.New applying the schema when it opens Postgres.
func newMigrateCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.DB == nil {
				return errors.New("migrate needs STORAGE=postgres")
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		},
	}
}
