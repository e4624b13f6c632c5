package departurecache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/travigo/vgnwatch/pkg/ctdf"
	"github.com/travigo/vgnwatch/pkg/util"
)

const (
	keyPrefix    = "departures:"
	expiryMargin = 30 * time.Second
)

func Key(stopID string) string {
	return keyPrefix + stopID
}

// ExpiryFor keeps a snapshot alive slightly past the next expected refresh
func ExpiryFor(fetchInterval time.Duration) time.Duration {
	return fetchInterval + expiryMargin
}

type Store struct {
	Client redis.UniversalClient
	Expiry time.Duration
}

func NewStore(client redis.UniversalClient, expiry time.Duration) *Store {
	return &Store{
		Client: client,
		Expiry: expiry,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.Client.Close()
}

// Write overwrites the snapshot for a stop. A nil list is stored as an empty array.
func (s *Store) Write(ctx context.Context, stopID string, departures []*ctdf.Departure) error {
	if departures == nil {
		departures = []*ctdf.Departure{}
	}

	payload, err := json.Marshal(departures)
	if err != nil {
		return err
	}

	return s.Client.Set(ctx, Key(stopID), payload, s.Expiry).Err()
}

// Read returns the cached departures of one stop. A missing key or an unreadable payload gives an empty list.
func (s *Store) Read(ctx context.Context, stopID string) ([]*ctdf.Departure, error) {
	payload, err := s.Client.Get(ctx, Key(stopID)).Result()
	if errors.Is(err, redis.Nil) {
		log.Debug().Str("stop", stopID).Msg("No cached departures")
		return []*ctdf.Departure{}, nil
	} else if err != nil {
		return nil, err
	}

	return decode(Key(stopID), payload), nil
}

type ReadStats struct {
	Requested int `json:"requested"`
	Found     int `json:"found"`
	Malformed int `json:"malformed"`
}

// ReadMany fetches all stops with a single MGET and concatenates their departures in stop order
func (s *Store) ReadMany(ctx context.Context, stopIDs []string) ([]*ctdf.Departure, ReadStats, error) {
	stats := ReadStats{Requested: len(stopIDs)}
	departures := []*ctdf.Departure{}

	if len(stopIDs) == 0 {
		return departures, stats, nil
	}

	keys := make([]string, len(stopIDs))
	for i, stopID := range stopIDs {
		keys[i] = Key(stopID)
	}

	values, err := s.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, stats, err
	}

	for i, value := range values {
		payload, ok := value.(string)
		if !ok {
			continue
		}
		stats.Found++

		stopDepartures, valid := decodeList(payload)
		if !valid {
			stats.Malformed++
			log.Error().Str("key", keys[i]).Str("data", util.TrimString(payload, 100)).Msg("Failed to decode cached departures")
			continue
		}

		departures = append(departures, stopDepartures...)
	}

	log.Debug().
		Int("requested", stats.Requested).
		Int("found", stats.Found).
		Int("departures", len(departures)).
		Msg("Read cached departures")

	return departures, stats, nil
}

func decode(key string, payload string) []*ctdf.Departure {
	departures, valid := decodeList(payload)
	if !valid {
		log.Error().Str("key", key).Str("data", util.TrimString(payload, 100)).Msg("Failed to decode cached departures")
		return []*ctdf.Departure{}
	}

	return departures
}

func decodeList(payload string) ([]*ctdf.Departure, bool) {
	var departures []*ctdf.Departure
	if err := json.Unmarshal([]byte(payload), &departures); err != nil {
		return nil, false
	}

	util.InPlaceFilter(&departures, func(departure *ctdf.Departure) bool {
		return departure != nil
	})

	return departures, true
}

// IsConnectionError reports failures that mean the client can no longer reach the server
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, redis.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
