package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/travigo/vgnwatch/pkg/dashboard"
	"github.com/travigo/vgnwatch/pkg/gtfsimport"
	"github.com/travigo/vgnwatch/pkg/poller"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	if os.Getenv("VGNWATCH_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("VGNWATCH_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "vgnwatch",
		Description: "Real-time departure poller and network dashboard for the VGN region",

		Commands: []*cli.Command{
			poller.RegisterCLI(),
			dashboard.RegisterCLI(),
			gtfsimport.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
