package dashboard

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/travigo/vgnwatch/pkg/config"
	"github.com/travigo/vgnwatch/pkg/database"
	"github.com/travigo/vgnwatch/pkg/departurecache"
	"github.com/travigo/vgnwatch/pkg/redis_client"
	"github.com/travigo/vgnwatch/pkg/schedule"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "dashboard",
		Usage: "Serves the network and real-time performance dashboard",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run dashboard web server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
				},
				Action: func(c *cli.Context) error {
					cfg := config.Load()

					ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
					defer cancel()

					sources := &Sources{
						Queries:         schedule.NewQueries(nil),
						Region:          cfg.Region,
						PriorityStops:   cfg.PriorityStops,
						FallbackStops:   cfg.FallbackStops,
						MaxStops:        cfg.MaxStopsPerCycle,
						RefreshInterval: cfg.RefreshInterval,
					}

					// The dashboard stays up without its stores and shows empty data instead
					pool, err := database.ConnectPostgres(ctx, cfg.Postgres)
					if err != nil {
						log.Warn().Err(err).Msg("Database not available, static views will be empty")
					} else {
						defer pool.Close()
						sources.Queries = schedule.NewQueries(pool)
					}

					redisClient, err := redis_client.Connect(ctx, cfg)
					if err != nil {
						log.Warn().Err(err).Str("address", cfg.RedisAddress()).Msg("Redis not available, real-time views will be empty")
					} else {
						defer redisClient.Close()
						sources.Departures = departurecache.NewStore(redisClient, departurecache.ExpiryFor(cfg.FetchInterval))
						sources.Results = NewResultCache(redisClient)
					}

					server := &Server{Sources: sources}

					return server.Listen(ctx, c.String("listen"))
				},
			},
		},
	}
}
