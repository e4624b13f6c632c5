package vag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/vgnwatch/pkg/ctdf"
)

const (
	DefaultBaseURL = "https://start.vag.de/dm/api/v1"
	DefaultNetwork = "VGN"

	// Nürnberg Hauptbahnhof
	DefaultProbeStop = "510"

	defaultTimeout = 10 * time.Second
)

var ErrUnexpectedStatus = errors.New("unexpected response status")

type Client struct {
	BaseURL    string
	Network    string
	HTTPClient *http.Client
}

func NewClient(baseURL string, network string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if network == "" {
		network = DefaultNetwork
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		BaseURL:    baseURL,
		Network:    network,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) DeparturesURL(stopID string) string {
	return fmt.Sprintf("%s/abfahrten/%s/%s", c.BaseURL, url.PathEscape(c.Network), url.PathEscape(NumericStopID(stopID)))
}

// GetDepartures makes a single request for the stop. It never returns an error directly,
// failures are reported through the result status so a polling cycle can carry on.
func (c *Client) GetDepartures(ctx context.Context, stopID string) FetchResult {
	requestURL := c.DeparturesURL(stopID)

	log.Debug().Str("stop", stopID).Str("url", requestURL).Msg("Requesting departures")

	response, err := c.request(ctx, requestURL)
	if err != nil {
		log.Error().Err(err).Str("stop", stopID).Str("url", requestURL).Msg("Failed to fetch departures")

		return FetchResult{
			StopID: stopID,
			Status: FetchStatusError,
			Err:    err,
		}
	}

	departures := make([]*ctdf.Departure, 0, len(response.Departures))
	for i := range response.Departures {
		departures = append(departures, response.Departures[i].ToDeparture())
	}

	if len(departures) == 0 {
		return FetchResult{
			StopID:     stopID,
			Status:     FetchStatusEmpty,
			Departures: departures,
		}
	}

	log.Debug().Str("stop", stopID).Int("departures", len(departures)).Msg("Parsed departures")

	return FetchResult{
		StopID:     stopID,
		Status:     FetchStatusOK,
		Departures: departures,
	}
}

func (c *Client) request(ctx context.Context, requestURL string) (*DeparturesResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "vgnwatch")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var departuresResponse DeparturesResponse
	if err := json.Unmarshal(body, &departuresResponse); err != nil {
		return nil, fmt.Errorf("decode departures: %w", err)
	}

	return &departuresResponse, nil
}
