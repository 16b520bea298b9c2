package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"warden/internal/platform/kafka"
	"warden/internal/platform/postgres"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and create the events topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if c.cfg.Database.URL == "" {
				return fmt.Errorf("migrate: database.url is required")
			}
			db, err := postgres.Open(ctx, c.cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := postgres.Migrate(ctx, db)
			if err != nil {
				return err
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			c.logger.Info("migrations complete", "applied", len(applied))

			if len(c.cfg.Kafka.Brokers) == 0 {
				return nil
			}
			client, err := kafka.NewClient(c.cfg.Kafka)
			if err != nil {
				return err
			}
			defer client.Close()
			if err := kafka.EnsureTopic(ctx, client, c.cfg.Kafka); err != nil {
				return err
			}
			c.logger.Info("events topic ready", "topic", c.cfg.Kafka.Topic)
			return nil
		},
	}
}
