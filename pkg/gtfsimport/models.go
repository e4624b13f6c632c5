package gtfsimport

import (
	"strconv"
	"strings"
)

// Optional numeric columns are read as text so a blank cell can be stored as NULL

type Agency struct {
	ID       string `csv:"agency_id"`
	Name     string `csv:"agency_name"`
	URL      string `csv:"agency_url"`
	Timezone string `csv:"agency_timezone"`
	Language string `csv:"agency_lang"`
	Phone    string `csv:"agency_phone"`
}

func (a Agency) values() []any {
	return []any{a.ID, a.Name, a.URL, a.Timezone, nullableString(a.Language), nullableString(a.Phone)}
}

type Calendar struct {
	ServiceID string `csv:"service_id"`
	Monday    int    `csv:"monday"`
	Tuesday   int    `csv:"tuesday"`
	Wednesday int    `csv:"wednesday"`
	Thursday  int    `csv:"thursday"`
	Friday    int    `csv:"friday"`
	Saturday  int    `csv:"saturday"`
	Sunday    int    `csv:"sunday"`
	Start     string `csv:"start_date"`
	End       string `csv:"end_date"`
}

func (c Calendar) values() []any {
	return []any{c.ServiceID, c.Monday, c.Tuesday, c.Wednesday, c.Thursday, c.Friday, c.Saturday, c.Sunday, c.Start, c.End}
}

type CalendarDate struct {
	ServiceID     string `csv:"service_id"`
	Date          string `csv:"date"`
	ExceptionType int    `csv:"exception_type"`
}

func (c CalendarDate) values() []any {
	return []any{c.ServiceID, c.Date, c.ExceptionType}
}

type Route struct {
	ID         string `csv:"route_id"`
	AgencyID   string `csv:"agency_id"`
	ShortName  string `csv:"route_short_name"`
	LongName   string `csv:"route_long_name"`
	Type       int    `csv:"route_type"`
	Colour     string `csv:"route_color"`
	TextColour string `csv:"route_text_color"`
}

func (r Route) values() []any {
	return []any{
		r.ID,
		nullableString(r.AgencyID),
		nullableString(r.ShortName),
		nullableString(r.LongName),
		r.Type,
		nullableString(r.Colour),
		nullableString(r.TextColour),
	}
}

type Stop struct {
	ID           string `csv:"stop_id"`
	Code         string `csv:"stop_code"`
	Name         string `csv:"stop_name"`
	Latitude     string `csv:"stop_lat"`
	Longitude    string `csv:"stop_lon"`
	LocationType string `csv:"location_type"`
	Parent       string `csv:"parent_station"`
	Wheelchair   string `csv:"wheelchair_boarding"`
	PlatformCode string `csv:"platform_code"`
}

func (s Stop) values() []any {
	return []any{
		s.ID,
		nullableString(s.Code),
		nullableString(s.Name),
		nullableFloat(s.Latitude),
		nullableFloat(s.Longitude),
		nullableInt(s.LocationType),
		nullableString(s.Parent),
		nullableInt(s.Wheelchair),
		nullableString(s.PlatformCode),
	}
}

type Trip struct {
	ID          string `csv:"trip_id"`
	RouteID     string `csv:"route_id"`
	ServiceID   string `csv:"service_id"`
	Headsign    string `csv:"trip_headsign"`
	DirectionID string `csv:"direction_id"`
	BlockID     string `csv:"block_id"`
	ShapeID     string `csv:"shape_id"`
}

func (t Trip) values() []any {
	return []any{
		t.ID,
		t.RouteID,
		t.ServiceID,
		nullableString(t.Headsign),
		nullableInt(t.DirectionID),
		nullableString(t.BlockID),
		nullableString(t.ShapeID),
	}
}

type StopTime struct {
	TripID        string `csv:"trip_id"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
	StopID        string `csv:"stop_id"`
	StopSequence  int    `csv:"stop_sequence"`
	PickupType    string `csv:"pickup_type"`
	DropOffType   string `csv:"drop_off_type"`
}

func (s StopTime) values() []any {
	return []any{
		s.TripID,
		nullableString(s.ArrivalTime),
		nullableString(s.DepartureTime),
		s.StopID,
		s.StopSequence,
		nullableInt(s.PickupType),
		nullableInt(s.DropOffType),
	}
}

type Transfer struct {
	FromStopID      string `csv:"from_stop_id"`
	ToStopID        string `csv:"to_stop_id"`
	TransferType    int    `csv:"transfer_type"`
	MinTransferTime string `csv:"min_transfer_time"`
}

func (t Transfer) values() []any {
	return []any{t.FromStopID, t.ToStopID, t.TransferType, nullableInt(t.MinTransferTime)}
}

func nullableString(value string) any {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	return value
}

func nullableInt(value string) any {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return nil
	}

	return parsed
}

func nullableFloat(value string) any {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return nil
	}

	return parsed
}
