package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/example/resywatch/internal/config"
	"github.com/example/resywatch/internal/db"
	"github.com/example/resywatch/internal/migrate"
	"github.com/example/resywatch/internal/venues"
	"github.com/spf13/cobra"
)

func newVenueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "venue",
		Short: "Manage the watch-list",
	}
	cmd.AddCommand(newVenueAddCmd())
	cmd.AddCommand(newVenueListCmd())
	cmd.AddCommand(newVenueRmCmd())
	return cmd
}

func openRepo(ctx context.Context) (*db.DB, *venues.Repo, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	d, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := migrate.Up(ctx, d); err != nil {
		d.Close()
		return nil, nil, err
	}
	return d, venues.NewRepo(d), nil
}

func newVenueAddCmd() *cobra.Command {
	var (
		id            int64
		name          string
		partySize     int
		intervalDays  int
		minTime       string
		maxTime       string
		preferredTime string
		cronSpec      string
	)

	c := &cobra.Command{
		Use:   "add",
		Short: "Add a venue to the watch-list",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			d, repo, err := openRepo(ctx)
			if err != nil {
				return err
			}
			defer d.Close()

			v := venues.Venue{
				ID:            id,
				Name:          name,
				PartySize:     partySize,
				IntervalDays:  intervalDays,
				MinTime:       minTime,
				MaxTime:       maxTime,
				PreferredTime: preferredTime,
				Cron:          cronSpec,
			}
			if err := v.Validate(); err != nil {
				return err
			}
			if err := repo.Create(ctx, v); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "watching venue id=%d name=%q window=%s..%s cron=%q\n",
				v.ID, v.Name, v.MinTime, v.MaxTime, v.Cron)
			return nil
		},
	}

	c.Flags().Int64Var(&id, "id", 0, "resy venue id")
	c.Flags().StringVar(&name, "name", "", "venue name")
	c.Flags().IntVar(&partySize, "party-size", 2, "party size")
	c.Flags().IntVar(&intervalDays, "interval-days", 1, "how many days ahead to check (today + interval-1)")
	c.Flags().StringVar(&minTime, "min-time", "", "earliest acceptable time (HH:MM)")
	c.Flags().StringVar(&maxTime, "max-time", "", "latest acceptable time (HH:MM)")
	c.Flags().StringVar(&preferredTime, "preferred-time", "", "optional preferred time (HH:MM)")
	c.Flags().StringVar(&cronSpec, "cron", "*/5 * * * *", "cron spec for this venue's checks")

	_ = c.MarkFlagRequired("id")
	_ = c.MarkFlagRequired("name")
	_ = c.MarkFlagRequired("min-time")
	_ = c.MarkFlagRequired("max-time")
	return c
}

func newVenueListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List watched venues",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			d, repo, err := openRepo(ctx)
			if err != nil {
				return err
			}
			defer d.Close()

			vs, err := repo.List(ctx)
			if err != nil {
				return err
			}
			for _, v := range vs {
				status := "watching"
				if v.Booked() {
					status = "booked"
				}
				fmt.Fprintf(os.Stdout, "id=%d name=%q party=%d window=%s..%s preferred=%q cron=%q status=%s\n",
					v.ID, v.Name, v.PartySize, v.MinTime, v.MaxTime, v.PreferredTime, v.Cron, status)
			}
			return nil
		},
	}
}

func newVenueRmCmd() *cobra.Command {
	var id int64
	c := &cobra.Command{
		Use:   "rm",
		Short: "Remove a venue from the watch-list",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			d, repo, err := openRepo(ctx)
			if err != nil {
				return err
			}
			defer d.Close()
			if err := repo.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "removed venue id=%d\n", id)
			return nil
		},
	}
	c.Flags().Int64Var(&id, "id", 0, "resy venue id")
	_ = c.MarkFlagRequired("id")
	return c
}
