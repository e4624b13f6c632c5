package schedule

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/travigo/vgnwatch/pkg/ctdf"
	"github.com/travigo/vgnwatch/pkg/util"
)

const DefaultTopRoutes = 15

// Querier is the read surface of a pgx pool or connection
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries runs the fixed aggregate queries over the static schedule.
// Every query logs its failure and returns an empty result, a nil DB behaves the same way.
type Queries struct {
	DB Querier
}

func NewQueries(db Querier) *Queries {
	return &Queries{DB: db}
}

type OverviewStats struct {
	TotalRoutes int `json:"total_routes"`
	TotalStops  int `json:"total_stops"`
	TotalTrips  int `json:"total_trips"`
}

type RouteTypeCount struct {
	RouteType int                `json:"route_type"`
	Name      ctdf.TransportType `json:"route_type_name"`
	Count     int                `json:"count"`
}

type RouteTrips struct {
	ShortName   string `json:"-"`
	LongName    string `json:"-"`
	DisplayName string `json:"route_display_name"`
	TripCount   int    `json:"trip_count"`
}

type StopLocation struct {
	ID        string  `json:"stop_id"`
	Name      string  `json:"stop_name"`
	Latitude  float64 `json:"stop_lat"`
	Longitude float64 `json:"stop_lon"`
}

type Stop struct {
	ID   string `json:"stop_id"`
	Name string `json:"stop_name"`
}

const boardingPointFilter = `(location_type = 0 OR location_type IS NULL)`

func (q *Queries) OverviewStats(ctx context.Context) OverviewStats {
	var stats OverviewStats
	if q.DB == nil {
		log.Error().Msg("Database not available for overview stats")
		return stats
	}

	err := q.DB.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM routes),
			(SELECT COUNT(*) FROM stops WHERE `+boardingPointFilter+`),
			(SELECT COUNT(*) FROM trips)
	`).Scan(&stats.TotalRoutes, &stats.TotalStops, &stats.TotalTrips)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch overview stats")
		return OverviewStats{}
	}

	return stats
}

func (q *Queries) RouteTypeCounts(ctx context.Context) []RouteTypeCount {
	counts := []RouteTypeCount{}

	rows, ok := q.query(ctx, "route type counts", `
		SELECT route_type, COUNT(*)
		FROM routes
		GROUP BY route_type
		ORDER BY route_type
	`)
	if !ok {
		return counts
	}
	defer rows.Close()

	for rows.Next() {
		var count RouteTypeCount
		if err := rows.Scan(&count.RouteType, &count.Count); err != nil {
			log.Error().Err(err).Msg("Failed to scan route type count")
			return []RouteTypeCount{}
		}
		count.Name = ctdf.TransportTypeFromRouteType(count.RouteType)

		counts = append(counts, count)
	}

	return finish(rows, "route type counts", counts, []RouteTypeCount{})
}

// TopRoutesByTrips ranks routes by their number of scheduled trips
func (q *Queries) TopRoutesByTrips(ctx context.Context, limit int) []RouteTrips {
	routes := []RouteTrips{}
	if limit <= 0 {
		limit = DefaultTopRoutes
	}

	rows, ok := q.query(ctx, "top routes", `
		SELECT COALESCE(r.route_short_name, ''), COALESCE(r.route_long_name, ''), COUNT(t.trip_id) AS trip_count
		FROM trips t
		JOIN routes r ON t.route_id = r.route_id
		GROUP BY r.route_id, r.route_short_name, r.route_long_name
		ORDER BY trip_count DESC
		LIMIT $1
	`, limit)
	if !ok {
		return routes
	}
	defer rows.Close()

	for rows.Next() {
		var route RouteTrips
		if err := rows.Scan(&route.ShortName, &route.LongName, &route.TripCount); err != nil {
			log.Error().Err(err).Msg("Failed to scan top route")
			return []RouteTrips{}
		}
		route.DisplayName = RouteDisplayName(route.ShortName, route.LongName)

		routes = append(routes, route)
	}

	return finish(rows, "top routes", routes, []RouteTrips{})
}

// RouteDisplayName renders "short (long)", dropping the parentheses when the long name is blank
func RouteDisplayName(shortName string, longName string) string {
	shortName = strings.TrimSpace(shortName)
	longName = strings.TrimSpace(longName)

	if longName == "" {
		return shortName
	}

	return strings.TrimSpace(shortName + " (" + longName + ")")
}

func (q *Queries) StopLocations(ctx context.Context) []StopLocation {
	locations := []StopLocation{}

	rows, ok := q.query(ctx, "stop locations", `
		SELECT stop_id, COALESCE(stop_name, ''), stop_lat, stop_lon
		FROM stops
		WHERE `+boardingPointFilter+`
		AND stop_lat IS NOT NULL AND stop_lon IS NOT NULL
	`)
	if !ok {
		return locations
	}
	defer rows.Close()

	for rows.Next() {
		var location StopLocation
		if err := rows.Scan(&location.ID, &location.Name, &location.Latitude, &location.Longitude); err != nil {
			log.Error().Err(err).Msg("Failed to scan stop location")
			return []StopLocation{}
		}

		locations = append(locations, location)
	}

	return finish(rows, "stop locations", locations, []StopLocation{})
}

// StopLocationsInRegion narrows StopLocations to one region's id prefix
func (q *Queries) StopLocationsInRegion(ctx context.Context, regionName string) []StopLocation {
	region, err := RegionByName(regionName)
	if err != nil {
		log.Error().Err(err).Msg("No stop prefix for region")
		return []StopLocation{}
	}

	locations := q.StopLocations(ctx)
	util.InPlaceFilter(&locations, func(location StopLocation) bool {
		return strings.HasPrefix(location.ID, region.Prefix)
	})

	return locations
}

// StopsByRegion returns the boarding point ids whose id carries the region's prefix.
// An unknown region gives an empty list.
func (q *Queries) StopsByRegion(ctx context.Context, regionName string) []string {
	stopIDs := []string{}

	region, err := RegionByName(regionName)
	if err != nil {
		log.Error().Err(err).Msg("No stop prefix for region")
		return stopIDs
	}

	rows, ok := q.query(ctx, "region stops", `
		SELECT stop_id
		FROM stops
		WHERE stop_id LIKE $1
		AND `+boardingPointFilter, region.Prefix+"%")
	if !ok {
		return stopIDs
	}
	defer rows.Close()

	for rows.Next() {
		var stopID string
		if err := rows.Scan(&stopID); err != nil {
			log.Error().Err(err).Msg("Failed to scan region stop")
			return []string{}
		}

		stopIDs = append(stopIDs, stopID)
	}

	stopIDs = finish(rows, "region stops", stopIDs, []string{})

	log.Info().Str("region", region.Name).Int("stops", len(stopIDs)).Msg("Found region stops")

	return stopIDs
}

func (q *Queries) StopList(ctx context.Context) []Stop {
	stops := []Stop{}

	rows, ok := q.query(ctx, "stop list", `
		SELECT stop_id, COALESCE(stop_name, '')
		FROM stops
		WHERE `+boardingPointFilter+`
		ORDER BY stop_name
	`)
	if !ok {
		return stops
	}
	defer rows.Close()

	for rows.Next() {
		var stop Stop
		if err := rows.Scan(&stop.ID, &stop.Name); err != nil {
			log.Error().Err(err).Msg("Failed to scan stop")
			return []Stop{}
		}

		stops = append(stops, stop)
	}

	return finish(rows, "stop list", stops, []Stop{})
}

// MonitoredStops is the region's stops followed by the extra ids, without duplicates
func (q *Queries) MonitoredStops(ctx context.Context, regionName string, extra []string) []string {
	stopIDs := util.RemoveDuplicateStrings(append(q.StopsByRegion(ctx, regionName), extra...), []string{})
	if stopIDs == nil {
		return []string{}
	}

	return stopIDs
}

func (q *Queries) query(ctx context.Context, name string, sql string, args ...any) (pgx.Rows, bool) {
	if q.DB == nil {
		log.Error().Str("query", name).Msg("Database not available")
		return nil, false
	}

	rows, err := q.DB.Query(ctx, sql, args...)
	if err != nil {
		log.Error().Err(err).Str("query", name).Msg("Failed to run query")
		return nil, false
	}

	return rows, true
}

func finish[T any](rows pgx.Rows, name string, result []T, empty []T) []T {
	if err := rows.Err(); err != nil {
		log.Error().Err(err).Str("query", name).Msg("Failed reading query rows")
		return empty
	}

	log.Debug().Str("query", name).Int("rows", len(result)).Msg("Query complete")

	return result
}
