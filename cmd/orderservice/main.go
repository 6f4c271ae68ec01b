package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const appID = "orderservice"

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	app := &cli.App{
		Name:  appID,
		Usage: "order placement with inventory reservation",
		Commands: []*cli.Command{
			serviceCommand(),
			migrateCommand(),
			productCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("command failed")
	}
}
