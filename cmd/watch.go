package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/resywatch/internal/config"
	"github.com/example/resywatch/internal/db"
	"github.com/example/resywatch/internal/logging"
	"github.com/example/resywatch/internal/migrate"
	"github.com/example/resywatch/internal/monitor"
	"github.com/example/resywatch/internal/notify"
	"github.com/example/resywatch/internal/resy"
	"github.com/example/resywatch/internal/scheduler"
	"github.com/example/resywatch/internal/venues"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the watcher daemon (per-venue cron checks + hourly session refresh)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.RequireResy(); err != nil {
				return err
			}

			log, err := logging.New(cfg.Env, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()
			if err := d.Ping(ctx); err != nil {
				return fmt.Errorf("db ping: %w", err)
			}
			if migrateUp {
				if err := migrate.Up(ctx, d); err != nil {
					return err
				}
			}

			repo := venues.NewRepo(d)
			client := resy.New(resy.Config{
				APIKey:   cfg.ResyAPIKey,
				Email:    cfg.ResyEmail,
				Password: cfg.ResyPassword,
			})

			var notifier monitor.Notifier = notify.LogTexter{Log: log}
			if cfg.TwilioConfigured() {
				notifier = notify.NewTexter(notify.TwilioConfig{
					AccountSID: cfg.TwilioAccountSID,
					AuthToken:  cfg.TwilioAuthToken,
					From:       cfg.TwilioFrom,
					To:         cfg.TwilioTo,
				})
			}

			m := monitor.New(client, notifier, repo, log)

			vs, err := repo.List(ctx)
			if err != nil {
				return err
			}

			s := &scheduler.Scheduler{
				Runner:     m,
				Auth:       client,
				Log:        log,
				ReauthSpec: cfg.ReauthCron,
			}
			if err := s.Start(ctx, vs); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	return cmd
}
