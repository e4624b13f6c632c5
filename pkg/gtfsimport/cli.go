package gtfsimport

import (
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/travigo/vgnwatch/pkg/config"
	"github.com/travigo/vgnwatch/pkg/database"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "gtfs-import",
		Usage: "Load a static GTFS feed into Postgres",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "replace the schedule tables with a GTFS feed",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "path",
						Usage:    "GTFS zip archive or directory of extracted text files",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					cfg := config.Load()
					if err := cfg.Postgres.Validate(); err != nil {
						log.Fatal().Err(err).Msg("Incomplete database configuration")
					}

					startTime := time.Now()

					feed, err := Open(c.String("path"))
					if err != nil {
						return err
					}

					pool, err := database.Connect(c.Context, cfg.Postgres, 3)
					if err != nil {
						log.Fatal().Err(err).Msg("Could not connect to database")
					}
					defer pool.Close()

					var summary ImportSummary
					err = pgx.BeginFunc(c.Context, pool, func(tx pgx.Tx) error {
						summary, err = Import(c.Context, tx, feed)
						return err
					})
					if err != nil {
						return err
					}

					event := log.Info().Str("length", time.Since(startTime).String())
					for table, rows := range summary {
						event = event.Int64(table, rows)
					}
					event.Msg("GTFS import complete")

					return nil
				},
			},
		},
	}
}
