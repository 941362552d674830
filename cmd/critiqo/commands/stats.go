package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/utafrali/critiqo/internal/config"
)

func newStatsCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show review counts per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, done, err := s.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			stats, err := e.app.Collector().Collect(e.ctx)
			if err != nil {
				return err
			}
			return e.out.Stats(stats)
		},
	}
}

func newWatchCommand(s *session) *cobra.Command {
	var (
		port     int
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll dashboard stats and serve them with health and metrics endpoints",
		Long: `Poll review counts on an interval and serve them until interrupted:

  GET /api/v1/stats   latest counts
  GET /healthz        liveness
  GET /readyz         readiness, down until the first successful poll
  GET /metrics        Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, done, err := s.open(cmd, func(cfg *config.Config) {
				if cmd.Flags().Changed("port") {
					cfg.WatchPort = port
				}
				if cmd.Flags().Changed("interval") {
					cfg.WatchInterval = interval
				}
			})
			if err != nil {
				return err
			}
			defer done()
			return e.app.Watch(e.ctx)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default from CRITIQO_WATCH_PORT)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Poll interval (default from CRITIQO_WATCH_INTERVAL)")
	return cmd
}
