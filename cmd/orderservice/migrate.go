package main

import (
	"github.com/urfave/cli/v2"

	"orderservice/pkg/storage/sqlstore"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply database migrations and exit",
		Action: func(c *cli.Context) error {
			cfg, err := parseEnv()
			if err != nil {
				return err
			}
			logger, err := cfg.logger()
			if err != nil {
				return err
			}

			db, err := openDatabase(c.Context, cfg)
			if err != nil {
				return err
			}
			defer logClose(logger, "database", db.Close)

			if err := sqlstore.Migrate(db); err != nil {
				return err
			}
			logger.WithField("driver", cfg.StorageDriver).Info("migrations applied")
			return nil
		},
	}
}
