package vag

import "strings"

// NumericStopID reduces a GTFS style stop id (de:09564:510:11:1) to the numeric id the API expects.
// Ids that are not in that form are returned as is.
func NumericStopID(stopID string) string {
	if !strings.HasPrefix(stopID, "de:") {
		return stopID
	}

	parts := strings.Split(stopID, ":")
	if len(parts) < 4 || parts[2] == "" {
		return stopID
	}

	return parts[2]
}
