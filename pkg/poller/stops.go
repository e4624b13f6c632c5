package poller

import (
	"context"
	"errors"
	"fmt"

	"github.com/travigo/vgnwatch/pkg/util"
)

var ErrNoStops = errors.New("no stops to monitor")

// StopSource resolves the stop ids of a region from the static schedule
type StopSource interface {
	StopsByRegion(ctx context.Context, region string) []string
}

// OrderStops puts the priority ids first, in their configured order and whether or not they are
// part of stops, followed by the remaining ids in input order. Duplicates and blanks are dropped
// and the result is capped at limit. A limit of zero or less means no cap.
func OrderStops(stops []string, priority []string, limit int) []string {
	ordered := util.RemoveDuplicateStrings(append(append([]string{}, priority...), stops...), []string{})

	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}

	if ordered == nil {
		return []string{}
	}

	return ordered
}

// ResolveStops loads the region's stops and adds the fallback ids. The region itself must resolve
// to at least one stop.
func ResolveStops(ctx context.Context, source StopSource, region string, fallback []string) ([]string, error) {
	regionStops := source.StopsByRegion(ctx, region)
	if len(regionStops) == 0 {
		return nil, fmt.Errorf("%w: region %s", ErrNoStops, region)
	}

	return util.RemoveDuplicateStrings(append(regionStops, fallback...), []string{}), nil
}
