package delays

const (
	OnTimeLowerMinutes = -1
	OnTimeUpperMinutes = 3
)

func IsOnTime(minutes int) bool {
	return minutes >= OnTimeLowerMinutes && minutes <= OnTimeUpperMinutes
}

// KPIs summarises a set of departures. Ratios are nil when there is nothing to divide by.
type KPIs struct {
	TotalDepartures int      `json:"total_departures"`
	ValidDelayCount int      `json:"valid_delay_count"`
	AverageDelay    *float64 `json:"avg_delay"`
	OnTimePercent   *float64 `json:"on_time_percent"`
	Coverage        *float64 `json:"coverage"`
}

func AggregateKPIs(delays []DepartureDelay) KPIs {
	kpis := KPIs{
		TotalDepartures: len(delays),
	}

	minutes := validDelays(delays)
	kpis.ValidDelayCount = len(minutes)

	if kpis.TotalDepartures > 0 {
		coverage := float64(kpis.ValidDelayCount) / float64(kpis.TotalDepartures)
		kpis.Coverage = &coverage
	}

	if kpis.ValidDelayCount == 0 {
		return kpis
	}

	total := 0
	onTime := 0
	for _, delay := range minutes {
		total += delay
		if IsOnTime(delay) {
			onTime++
		}
	}

	averageDelay := float64(total) / float64(kpis.ValidDelayCount)
	onTimePercent := 100 * float64(onTime) / float64(kpis.ValidDelayCount)

	kpis.AverageDelay = &averageDelay
	kpis.OnTimePercent = &onTimePercent

	return kpis
}
