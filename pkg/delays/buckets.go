package delays

import (
	"fmt"
	"math"
)

type Bucket struct {
	Name  string `json:"name"`
	Label string `json:"label"`

	// Inclusive bounds in minutes
	Min int `json:"-"`
	Max int `json:"-"`
}

func (b Bucket) Contains(minutes int) bool {
	return minutes >= b.Min && minutes <= b.Max
}

var Buckets = []Bucket{
	{
		Name:  "early",
		Label: fmt.Sprintf("< %dm (Early)", OnTimeLowerMinutes),
		Min:   math.MinInt,
		Max:   OnTimeLowerMinutes - 1,
	},
	{
		Name:  "on_time",
		Label: fmt.Sprintf("%dm to +%dm (On Time)", OnTimeLowerMinutes, OnTimeUpperMinutes),
		Min:   OnTimeLowerMinutes,
		Max:   OnTimeUpperMinutes,
	},
	{
		Name:  "late",
		Label: fmt.Sprintf("+%dm to +10m (Late)", OnTimeUpperMinutes+1),
		Min:   OnTimeUpperMinutes + 1,
		Max:   10,
	},
	{
		Name:  "very_late",
		Label: "> +10m (Very Late)",
		Min:   11,
		Max:   math.MaxInt,
	},
}

func BucketFor(minutes int) Bucket {
	for _, bucket := range Buckets {
		if bucket.Contains(minutes) {
			return bucket
		}
	}

	// Unreachable, the buckets cover every int
	return Buckets[len(Buckets)-1]
}

type BucketCount struct {
	Bucket
	Count int `json:"count"`
}

// BucketDistribution always returns every bucket in order, zero-filled
func BucketDistribution(delays []DepartureDelay) []BucketCount {
	distribution := make([]BucketCount, len(Buckets))
	for i, bucket := range Buckets {
		distribution[i] = BucketCount{Bucket: bucket}
	}

	for _, minutes := range validDelays(delays) {
		for i := range distribution {
			if distribution[i].Contains(minutes) {
				distribution[i].Count++
				break
			}
		}
	}

	return distribution
}
