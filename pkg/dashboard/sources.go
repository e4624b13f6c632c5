package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/travigo/vgnwatch/pkg/ctdf"
	"github.com/travigo/vgnwatch/pkg/delays"
	"github.com/travigo/vgnwatch/pkg/departurecache"
	"github.com/travigo/vgnwatch/pkg/poller"
	"github.com/travigo/vgnwatch/pkg/schedule"
)

const sampleSize = 10

type DepartureReader interface {
	Read(ctx context.Context, stopID string) ([]*ctdf.Departure, error)
	ReadMany(ctx context.Context, stopIDs []string) ([]*ctdf.Departure, departurecache.ReadStats, error)
}

// Sources loads every piece of data the dashboard shows. Queries and Departures may be backed by
// unavailable stores, in which case the views show empty data. A nil Results disables caching.
type Sources struct {
	Queries    *schedule.Queries
	Departures DepartureReader
	Results    *ResultCache

	Region        string
	PriorityStops []string
	FallbackStops []string
	MaxStops      int

	RefreshInterval time.Duration
}

type RealtimeSummary struct {
	Available    bool                     `json:"available"`
	StopsQueried int                      `json:"stops_queried"`
	Cache        departurecache.ReadStats `json:"cache"`
	KPIs         delays.KPIs              `json:"kpis"`
	Distribution []delays.BucketCount     `json:"distribution"`
	Sample       []delays.DepartureDelay  `json:"sample"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

type Overview struct {
	Region         string                    `json:"region"`
	Stats          schedule.OverviewStats    `json:"stats"`
	RouteTypes     []schedule.RouteTypeCount `json:"route_types"`
	TopRoutes      []schedule.RouteTrips     `json:"top_routes"`
	StopCount      int                       `json:"monitored_stops"`
	Realtime       RealtimeSummary           `json:"realtime"`
	RefreshSeconds int                       `json:"refresh_seconds"`
	GeneratedAt    time.Time                 `json:"generated_at"`
}

func (s *Sources) realtimeTTL() time.Duration {
	return RealtimeTTL(s.RefreshInterval)
}

func (s *Sources) OverviewStats(ctx context.Context) schedule.OverviewStats {
	return cachedLoad(ctx, s.Results, "overview_stats", StaticTTL, s.Queries.OverviewStats)
}

func (s *Sources) RouteTypes(ctx context.Context) []schedule.RouteTypeCount {
	return cachedLoad(ctx, s.Results, "route_types", StaticTTL, s.Queries.RouteTypeCounts)
}

func (s *Sources) TopRoutes(ctx context.Context, limit int) []schedule.RouteTrips {
	return cachedLoad(ctx, s.Results, fmt.Sprintf("top_routes:%d", limit), StaticTTL, func(ctx context.Context) []schedule.RouteTrips {
		return s.Queries.TopRoutesByTrips(ctx, limit)
	})
}

func (s *Sources) StopList(ctx context.Context) []schedule.Stop {
	return cachedLoad(ctx, s.Results, "stop_list", StaticTTL, s.Queries.StopList)
}

func (s *Sources) StopLocations(ctx context.Context) []schedule.StopLocation {
	return cachedLoad(ctx, s.Results, "stop_locations:"+s.Region, StaticTTL, func(ctx context.Context) []schedule.StopLocation {
		return s.Queries.StopLocationsInRegion(ctx, s.Region)
	})
}

// MonitoredStops is the working set the poller fetches for the region
func (s *Sources) MonitoredStops(ctx context.Context) []string {
	return cachedLoad(ctx, s.Results, "monitored_stops:"+s.Region, StaticTTL, func(ctx context.Context) []string {
		stops := s.Queries.MonitoredStops(ctx, s.Region, s.FallbackStops)

		return poller.OrderStops(stops, s.PriorityStops, s.MaxStops)
	})
}

func (s *Sources) Realtime(ctx context.Context) RealtimeSummary {
	stopIDs := s.MonitoredStops(ctx)

	return cachedLoad(ctx, s.Results, "realtime:"+s.Region, s.realtimeTTL(), func(ctx context.Context) RealtimeSummary {
		return s.loadRealtime(ctx, stopIDs)
	})
}

func (s *Sources) loadRealtime(ctx context.Context, stopIDs []string) RealtimeSummary {
	summary := RealtimeSummary{
		StopsQueried: len(stopIDs),
		KPIs:         delays.AggregateKPIs(nil),
		Distribution: delays.BucketDistribution(nil),
		Sample:       []delays.DepartureDelay{},
		UpdatedAt:    time.Now(),
	}

	if s.Departures == nil {
		log.Warn().Msg("Departure cache not available")
		return summary
	}
	if len(stopIDs) == 0 {
		log.Warn().Str("region", s.Region).Msg("No stops to read departures for")
		return summary
	}

	departures, stats, err := s.Departures.ReadMany(ctx, stopIDs)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read departures from cache")
		return summary
	}

	delayed := delays.ComputeDelays(departures)

	summary.Available = true
	summary.Cache = stats
	summary.KPIs = delays.AggregateKPIs(delayed)
	summary.Distribution = delays.BucketDistribution(delayed)
	summary.Sample = delayed[:min(sampleSize, len(delayed))]

	if len(departures) == 0 {
		log.Warn().Str("region", s.Region).Msg("No departure data found in cache for the region")
	}

	return summary
}

// StopDepartures returns the cached departures of one stop with their delays
func (s *Sources) StopDepartures(ctx context.Context, stopID string) []delays.DepartureDelay {
	return cachedLoad(ctx, s.Results, "stop_departures:"+stopID, s.realtimeTTL(), func(ctx context.Context) []delays.DepartureDelay {
		if s.Departures == nil {
			return []delays.DepartureDelay{}
		}

		departures, err := s.Departures.Read(ctx, stopID)
		if err != nil {
			log.Error().Err(err).Str("stop", stopID).Msg("Failed to read stop departures from cache")
			return []delays.DepartureDelay{}
		}

		return delays.ComputeDelays(departures)
	})
}

// Overview loads all sources of the main view concurrently
func (s *Sources) Overview(ctx context.Context, topRoutes int) Overview {
	overview := Overview{
		Region:         s.Region,
		RefreshSeconds: int(s.RefreshInterval.Seconds()),
		GeneratedAt:    time.Now(),
	}

	var wg conc.WaitGroup
	wg.Go(func() {
		overview.Stats = s.OverviewStats(ctx)
	})
	wg.Go(func() {
		overview.RouteTypes = s.RouteTypes(ctx)
	})
	wg.Go(func() {
		overview.TopRoutes = s.TopRoutes(ctx, topRoutes)
	})
	wg.Go(func() {
		overview.Realtime = s.Realtime(ctx)
		overview.StopCount = overview.Realtime.StopsQueried
	})
	wg.Wait()

	return overview
}
