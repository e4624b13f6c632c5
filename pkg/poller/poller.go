package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/travigo/vgnwatch/pkg/ctdf"
	"github.com/travigo/vgnwatch/pkg/departurecache"
	"github.com/travigo/vgnwatch/pkg/vag"
)

var errNoWriter = errors.New("no departure cache connection")

type Fetcher interface {
	GetDepartures(ctx context.Context, stopID string) vag.FetchResult
}

type DepartureWriter interface {
	Write(ctx context.Context, stopID string, departures []*ctdf.Departure) error
	Ping(ctx context.Context) error
	Close() error
}

type Poller struct {
	Fetcher Fetcher
	Writer  DepartureWriter

	// Reconnect opens a fresh cache connection when the current one is dead at the start of a cycle
	Reconnect func(ctx context.Context) (DepartureWriter, error)

	Stops         []string
	PriorityStops []string
	MaxStops      int

	Interval     time.Duration
	MisfireGrace time.Duration
	RequestPause time.Duration

	running sync.Mutex
}

type CycleReport struct {
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`

	Attempted        int `json:"attempted"`
	Successful       int `json:"successful"`
	Empty            int `json:"empty"`
	Failed           int `json:"failed"`
	WriteFailures    int `json:"write_failures"`
	DeparturesStored int `json:"departures_stored"`

	// Skipped is set when another cycle was still running
	Skipped   bool   `json:"skipped"`
	Abandoned bool   `json:"abandoned"`
	Reason    string `json:"reason,omitempty"`
}

// RunCycle fetches every stop once and stores the results. At most one cycle runs at a time,
// a call made while another cycle is in flight returns a skipped report straight away.
func (p *Poller) RunCycle(ctx context.Context) CycleReport {
	if !p.running.TryLock() {
		log.Warn().Msg("Previous fetch cycle still running, skipping")
		return CycleReport{Started: time.Now(), Skipped: true}
	}
	defer p.running.Unlock()

	report := CycleReport{Started: time.Now()}
	defer func() {
		report.Duration = time.Since(report.Started)
		logReport(report)
	}()

	stops := OrderStops(p.Stops, p.PriorityStops, p.MaxStops)
	if len(stops) == 0 {
		log.Warn().Msg("No stop IDs provided, nothing to fetch")
		return report
	}

	writer, err := p.connectedWriter(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Departure cache unavailable, skipping fetch cycle")
		report.Abandoned = true
		report.Reason = "cache unavailable"
		return report
	}

	log.Info().Int("stops", len(stops)).Msg("Starting fetch cycle")

	for i, stopID := range stops {
		if i > 0 && !p.pause(ctx) {
			report.Abandoned = true
			report.Reason = "cancelled"
			break
		}
		if ctx.Err() != nil {
			report.Abandoned = true
			report.Reason = "cancelled"
			break
		}

		result := p.Fetcher.GetDepartures(ctx, stopID)
		report.Attempted++

		switch result.Status {
		case vag.FetchStatusOK:
			report.Successful++
		case vag.FetchStatusEmpty:
			report.Empty++
			log.Warn().Str("stop", stopID).Msg("No departures returned for stop")
		default:
			report.Failed++
			log.Warn().Err(result.Err).Str("stop", stopID).Msg("Failed to fetch departures for stop")
		}

		if !result.Storable() {
			continue
		}

		if err := writer.Write(ctx, stopID, result.Departures); err != nil {
			if departurecache.IsConnectionError(err) {
				log.Error().Err(err).Str("stop", stopID).Msg("Departure cache connection lost, ending fetch cycle")
				p.dropWriter(writer)
				report.Abandoned = true
				report.Reason = "cache connection lost"
				break
			}

			log.Error().Err(err).Str("stop", stopID).Msg("Failed to store departures")
			report.WriteFailures++
			continue
		}

		report.DeparturesStored += len(result.Departures)

		if len(result.Departures) > 0 {
			sample := result.Departures[0]
			log.Debug().
				Str("stop", stopID).
				Int("departures", len(result.Departures)).
				Str("line", sample.Line).
				Str("destination", sample.Destination).
				Str("scheduled", sample.ScheduledTime).
				Str("actual", sample.ActualTime).
				Msg("Stored departures")
		}
	}

	return report
}

// Run starts a cycle immediately and then on every interval tick until ctx is cancelled.
// It returns once any in-flight cycle has finished or been abandoned.
func (p *Poller) Run(ctx context.Context) error {
	if p.Interval <= 0 {
		return errors.New("polling interval must be positive")
	}
	if len(p.Stops) == 0 && len(p.PriorityStops) == 0 {
		return ErrNoStops
	}

	var cycles conc.WaitGroup
	defer cycles.Wait()

	log.Info().
		Dur("interval", p.Interval).
		Int("stops", len(p.Stops)).
		Msg("Starting departure poller")

	cycles.Go(func() {
		p.RunCycle(ctx)
	})

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Departure poller shutting down")
			return nil
		case scheduled := <-ticker.C:
			if p.misfired(scheduled) {
				log.Warn().Time("scheduled", scheduled).Msg("Fetch cycle trigger missed its grace period, skipping")
				continue
			}

			cycles.Go(func() {
				p.RunCycle(ctx)
			})
		}
	}
}

func (p *Poller) misfired(scheduled time.Time) bool {
	return p.MisfireGrace > 0 && time.Since(scheduled) > p.MisfireGrace
}

func (p *Poller) pause(ctx context.Context) bool {
	if p.RequestPause <= 0 {
		return true
	}

	timer := time.NewTimer(p.RequestPause)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (p *Poller) connectedWriter(ctx context.Context) (DepartureWriter, error) {
	if p.Writer != nil {
		err := p.Writer.Ping(ctx)
		if err == nil {
			return p.Writer, nil
		}

		log.Warn().Err(err).Msg("Departure cache connection lost, attempting to reconnect")
		p.dropWriter(p.Writer)
	}

	if p.Reconnect == nil {
		return nil, errNoWriter
	}

	writer, err := p.Reconnect(ctx)
	if err != nil {
		return nil, err
	}
	p.Writer = writer

	log.Info().Msg("Reconnected to departure cache")

	return writer, nil
}

func (p *Poller) dropWriter(writer DepartureWriter) {
	if err := writer.Close(); err != nil {
		log.Debug().Err(err).Msg("Closing departure cache connection")
	}

	if p.Writer == writer {
		p.Writer = nil
	}
}

func logReport(report CycleReport) {
	event := log.Info()
	if report.Abandoned {
		event = log.Warn().Str("reason", report.Reason)
	}

	event.
		Int("attempted", report.Attempted).
		Int("successful", report.Successful).
		Int("empty", report.Empty).
		Int("failed", report.Failed).
		Int("departuresstored", report.DeparturesStored).
		Str("length", report.Duration.String()).
		Msg("Fetch cycle completed")

	if report.Attempted == 0 || report.Abandoned {
		return
	}

	if report.Successful == 0 && report.Empty == 0 {
		log.Error().Msg("No data was fetched from any stop, check API connectivity and stop IDs")
	} else if report.DeparturesStored == 0 {
		log.Error().Msg("No departures were found for any stop, check whether service is currently running")
	}
}
