package gtfsimport

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/travigo/vgnwatch/pkg/database"
)

// Loader is the write surface of a pgx transaction
type Loader interface {
	database.Executor
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

type table struct {
	name    string
	columns []string
	length  int
	row     func(i int) []any
}

func (f *Feed) tables() []table {
	return []table{
		{
			name:    "agency",
			columns: []string{"agency_id", "agency_name", "agency_url", "agency_timezone", "agency_lang", "agency_phone"},
			length:  len(f.Agencies),
			row:     func(i int) []any { return f.Agencies[i].values() },
		},
		{
			name:    "calendar",
			columns: []string{"service_id", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday", "start_date", "end_date"},
			length:  len(f.Calendars),
			row:     func(i int) []any { return f.Calendars[i].values() },
		},
		{
			name:    "calendar_dates",
			columns: []string{"service_id", "date", "exception_type"},
			length:  len(f.CalendarDates),
			row:     func(i int) []any { return f.CalendarDates[i].values() },
		},
		{
			name:    "routes",
			columns: []string{"route_id", "agency_id", "route_short_name", "route_long_name", "route_type", "route_color", "route_text_color"},
			length:  len(f.Routes),
			row:     func(i int) []any { return f.Routes[i].values() },
		},
		{
			name:    "stops",
			columns: []string{"stop_id", "stop_code", "stop_name", "stop_lat", "stop_lon", "location_type", "parent_station", "wheelchair_boarding", "platform_code"},
			length:  len(f.Stops),
			row:     func(i int) []any { return f.Stops[i].values() },
		},
		{
			name:    "trips",
			columns: []string{"trip_id", "route_id", "service_id", "trip_headsign", "direction_id", "block_id", "shape_id"},
			length:  len(f.Trips),
			row:     func(i int) []any { return f.Trips[i].values() },
		},
		{
			name:    "stop_times",
			columns: []string{"trip_id", "arrival_time", "departure_time", "stop_id", "stop_sequence", "pickup_type", "drop_off_type"},
			length:  len(f.StopTimes),
			row:     func(i int) []any { return f.StopTimes[i].values() },
		},
		{
			name:    "transfers",
			columns: []string{"from_stop_id", "to_stop_id", "transfer_type", "min_transfer_time"},
			length:  len(f.Transfers),
			row:     func(i int) []any { return f.Transfers[i].values() },
		},
	}
}

type ImportSummary map[string]int64

// Import replaces the schedule tables with the feed's contents. Run it inside a transaction so a
// failed load leaves the previous schedule in place.
func Import(ctx context.Context, db Loader, feed *Feed) (ImportSummary, error) {
	if err := database.EnsureSchema(ctx, db); err != nil {
		return nil, err
	}

	if err := database.TruncateSchedule(ctx, db); err != nil {
		return nil, fmt.Errorf("truncate schedule: %w", err)
	}

	summary := ImportSummary{}

	for _, table := range feed.tables() {
		log.Info().Str("table", table.name).Int("length", table.length).Msg("Copying table")

		copied, err := db.CopyFrom(ctx, pgx.Identifier{table.name}, table.columns, pgx.CopyFromSlice(table.length, func(i int) ([]any, error) {
			return table.row(i), nil
		}))
		if err != nil {
			return nil, fmt.Errorf("copy %s: %w", table.name, err)
		}

		summary[table.name] = copied
	}

	return summary, nil
}
