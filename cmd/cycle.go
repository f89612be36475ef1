package cmd

import (
	"context"
	"fmt"

	"github.com/example/resywatch/internal/config"
	"github.com/example/resywatch/internal/db"
	"github.com/example/resywatch/internal/logging"
	"github.com/example/resywatch/internal/migrate"
	"github.com/example/resywatch/internal/monitor"
	"github.com/example/resywatch/internal/notify"
	"github.com/example/resywatch/internal/resy"
	"github.com/example/resywatch/internal/venues"
	"github.com/spf13/cobra"
)

func newCycleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cycle",
		Short: "Run one watch-list cycle and exit",
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

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()
			if err := migrate.Up(ctx, d); err != nil {
				return err
			}

			client := resy.New(resy.Config{
				APIKey:   cfg.ResyAPIKey,
				Email:    cfg.ResyEmail,
				Password: cfg.ResyPassword,
			})
			if err := client.Login(ctx); err != nil {
				return fmt.Errorf("resy login: %w", err)
			}

			var notifier monitor.Notifier = notify.LogTexter{Log: log}
			if cfg.TwilioConfigured() {
				notifier = notify.NewTexter(notify.TwilioConfig{
					AccountSID: cfg.TwilioAccountSID,
					AuthToken:  cfg.TwilioAuthToken,
					From:       cfg.TwilioFrom,
					To:         cfg.TwilioTo,
				})
			}

			m := monitor.New(client, notifier, venues.NewRepo(d), log)
			return m.RunCycle(ctx)
		},
	}
}
