package poller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/travigo/vgnwatch/pkg/config"
	"github.com/travigo/vgnwatch/pkg/database"
	"github.com/travigo/vgnwatch/pkg/departurecache"
	"github.com/travigo/vgnwatch/pkg/redis_client"
	"github.com/travigo/vgnwatch/pkg/schedule"
	"github.com/travigo/vgnwatch/pkg/vag"
	"github.com/urfave/cli/v2"
)

const startupRetries = 3

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "poller",
		Usage: "Poll the VAG departures API and cache the results in Redis",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the departure poller",
				Action: func(c *cli.Context) error {
					cfg := config.Load()
					if err := cfg.Postgres.Validate(); err != nil {
						log.Fatal().Err(err).Msg("Incomplete database configuration")
					}

					ctx, cancel := context.WithCancel(c.Context)
					defer cancel()

					pool, err := database.Connect(ctx, cfg.Postgres, startupRetries)
					if err != nil {
						log.Fatal().Err(err).Msg("Could not connect to database, cannot get stop IDs")
					}

					redisClient, err := redis_client.ConnectWithRetry(ctx, cfg, startupRetries)
					if err != nil {
						log.Fatal().Err(err).Msg("Could not connect to Redis, poller cannot start")
					}

					stops, err := ResolveStops(ctx, schedule.NewQueries(pool), cfg.Region, cfg.FallbackStops)
					pool.Close()
					if err != nil {
						log.Fatal().Err(err).Str("region", cfg.Region).Msg("Could not find any stop IDs, poller cannot start")
					}

					log.Info().Str("region", cfg.Region).Int("stops", len(stops)).Msg("Monitoring stops")

					expiry := departurecache.ExpiryFor(cfg.FetchInterval)

					poller := &Poller{
						Fetcher: vag.NewClient(cfg.APIBase, cfg.Network, cfg.RequestTimeout),
						Writer:  departurecache.NewStore(redisClient, expiry),
						Reconnect: func(ctx context.Context) (DepartureWriter, error) {
							client, err := redis_client.Connect(ctx, cfg)
							if err != nil {
								return nil, err
							}

							return departurecache.NewStore(client, expiry), nil
						},
						Stops:         stops,
						PriorityStops: cfg.PriorityStops,
						MaxStops:      cfg.MaxStopsPerCycle,
						Interval:      cfg.FetchInterval,
						MisfireGrace:  cfg.MisfireGrace,
						RequestPause:  cfg.RequestPause,
					}

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					go func() {
						<-signals
						log.Info().Msg("Received shutdown signal")
						cancel()

						<-signals // hard exit on second signal in case the in-flight cycle gets stuck
						os.Exit(1)
					}()

					return poller.Run(ctx)
				},
			},
			{
				Name:  "fetch",
				Usage: "fetch and print the departures of a single stop",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "stop",
						Usage:    "stop id, either numeric or a full de:xxxxx id",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					cfg := config.Load()
					client := vag.NewClient(cfg.APIBase, cfg.Network, cfg.RequestTimeout)

					result := client.GetDepartures(c.Context, c.String("stop"))
					pretty.Println(result)

					if result.Status == vag.FetchStatusError {
						return result.Err
					}

					return nil
				},
			},
			{
				Name:  "check",
				Usage: "check connectivity to Redis, Postgres and the departures API",
				Action: func(c *cli.Context) error {
					return Check(c.Context, config.Load())
				},
			},
		},
	}
}

// Check runs one probe against each collaborator and reports every failure together
func Check(ctx context.Context, cfg *config.Config) error {
	var failures []error

	redisClient, err := redis_client.Connect(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Str("address", cfg.RedisAddress()).Msg("Redis check failed")
		failures = append(failures, fmt.Errorf("redis: %w", err))
	} else {
		log.Info().Str("address", cfg.RedisAddress()).Msg("Redis check passed")
		redisClient.Close()
	}

	pool, err := database.ConnectPostgres(ctx, cfg.Postgres)
	if err != nil {
		log.Error().Err(err).Str("host", cfg.Postgres.Host).Msg("Postgres check failed")
		failures = append(failures, fmt.Errorf("postgres: %w", err))
	} else {
		stops := schedule.NewQueries(pool).StopsByRegion(ctx, cfg.Region)
		log.Info().Str("host", cfg.Postgres.Host).Int("regionstops", len(stops)).Msg("Postgres check passed")
		pool.Close()
	}

	probeStop := vag.DefaultProbeStop
	if len(cfg.PriorityStops) > 0 {
		probeStop = cfg.PriorityStops[0]
	}

	result := vag.NewClient(cfg.APIBase, cfg.Network, cfg.RequestTimeout).GetDepartures(ctx, probeStop)
	if result.Status == vag.FetchStatusError {
		failures = append(failures, fmt.Errorf("departures api: %w", result.Err))
	} else {
		log.Info().Str("stop", probeStop).Str("status", string(result.Status)).Int("departures", len(result.Departures)).Msg("Departures API check passed")
	}

	return errors.Join(failures...)
}
