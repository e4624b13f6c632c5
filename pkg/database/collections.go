package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Executor is the slice of the pgx pool used for schema management
type Executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// ScheduleTables lists the static GTFS tables in load order
var ScheduleTables = []string{
	"agency",
	"calendar",
	"calendar_dates",
	"routes",
	"stops",
	"trips",
	"stop_times",
	"transfers",
}

var tableDefinitions = map[string]string{
	"agency": `CREATE TABLE IF NOT EXISTS agency (
		agency_id TEXT PRIMARY KEY,
		agency_name TEXT NOT NULL,
		agency_url TEXT NOT NULL,
		agency_timezone TEXT NOT NULL,
		agency_lang TEXT,
		agency_phone TEXT
	)`,
	"calendar": `CREATE TABLE IF NOT EXISTS calendar (
		service_id TEXT PRIMARY KEY,
		monday INTEGER NOT NULL,
		tuesday INTEGER NOT NULL,
		wednesday INTEGER NOT NULL,
		thursday INTEGER NOT NULL,
		friday INTEGER NOT NULL,
		saturday INTEGER NOT NULL,
		sunday INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL
	)`,
	"calendar_dates": `CREATE TABLE IF NOT EXISTS calendar_dates (
		service_id TEXT NOT NULL,
		date TEXT NOT NULL,
		exception_type INTEGER NOT NULL,
		CONSTRAINT calendar_dates_pk PRIMARY KEY (service_id, date)
	)`,
	"routes": `CREATE TABLE IF NOT EXISTS routes (
		route_id TEXT PRIMARY KEY,
		agency_id TEXT,
		route_short_name TEXT,
		route_long_name TEXT,
		route_type INTEGER NOT NULL,
		route_color TEXT,
		route_text_color TEXT
	)`,
	"stops": `CREATE TABLE IF NOT EXISTS stops (
		stop_id TEXT PRIMARY KEY,
		stop_code TEXT,
		stop_name TEXT,
		stop_lat DOUBLE PRECISION,
		stop_lon DOUBLE PRECISION,
		location_type INTEGER,
		parent_station TEXT,
		wheelchair_boarding INTEGER,
		platform_code TEXT
	)`,
	"trips": `CREATE TABLE IF NOT EXISTS trips (
		trip_id TEXT PRIMARY KEY,
		route_id TEXT NOT NULL,
		service_id TEXT NOT NULL,
		trip_headsign TEXT,
		direction_id INTEGER,
		block_id TEXT,
		shape_id TEXT
	)`,
	"stop_times": `CREATE TABLE IF NOT EXISTS stop_times (
		trip_id TEXT NOT NULL,
		arrival_time TEXT,
		departure_time TEXT,
		stop_id TEXT NOT NULL,
		stop_sequence INTEGER NOT NULL,
		pickup_type INTEGER,
		drop_off_type INTEGER,
		CONSTRAINT stop_times_pk PRIMARY KEY (trip_id, stop_sequence)
	)`,
	"transfers": `CREATE TABLE IF NOT EXISTS transfers (
		from_stop_id TEXT NOT NULL,
		to_stop_id TEXT NOT NULL,
		transfer_type INTEGER NOT NULL,
		min_transfer_time INTEGER
	)`,
}

var indexDefinitions = []string{
	`CREATE INDEX IF NOT EXISTS trips_route_id_idx ON trips (route_id)`,
	`CREATE INDEX IF NOT EXISTS stops_location_type_idx ON stops (location_type)`,
	`CREATE INDEX IF NOT EXISTS stops_stop_id_pattern_idx ON stops (stop_id text_pattern_ops)`,
	`CREATE INDEX IF NOT EXISTS stop_times_stop_id_idx ON stop_times (stop_id)`,
}

// EnsureSchema creates the schedule tables and their indexes when missing
func EnsureSchema(ctx context.Context, db Executor) error {
	for _, table := range ScheduleTables {
		if _, err := db.Exec(ctx, tableDefinitions[table]); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
	}

	for _, index := range indexDefinitions {
		if _, err := db.Exec(ctx, index); err != nil {
			log.Error().Err(err).Str("statement", index).Msg("Creating index")
		}
	}

	return nil
}

// TruncateSchedule empties every schedule table in one statement
func TruncateSchedule(ctx context.Context, db Executor) error {
	identifiers := make([]string, 0, len(ScheduleTables))
	for _, table := range ScheduleTables {
		identifiers = append(identifiers, pgx.Identifier{table}.Sanitize())
	}

	statement := "TRUNCATE TABLE "
	for i, identifier := range identifiers {
		if i > 0 {
			statement += ", "
		}
		statement += identifier
	}

	_, err := db.Exec(ctx, statement)
	return err
}
