package vag

import "github.com/travigo/vgnwatch/pkg/ctdf"

type FetchStatus string

const (
	FetchStatusOK    FetchStatus = "ok"
	FetchStatusEmpty FetchStatus = "empty"
	FetchStatusError FetchStatus = "error"
)

// FetchResult separates a stop that confirmed zero departures from one whose request failed
type FetchResult struct {
	StopID     string
	Status     FetchStatus
	Departures []*ctdf.Departure
	Err        error
}

// Storable reports whether the result should overwrite the cached snapshot
func (r FetchResult) Storable() bool {
	return r.Status == FetchStatusOK || r.Status == FetchStatusEmpty
}
