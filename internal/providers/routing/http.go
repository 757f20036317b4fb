package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPProvider calls a JSON routing API gated by an API key.
type HTTPProvider struct {
	cfg    Config
	client *http.Client
}

func NewHTTP(cfg Config) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type routeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Route   struct {
		DistanceMeters  int64 `json:"distance_meters"`
		DurationSeconds int64 `json:"duration_seconds"`
	} `json:"route"`
}

func (p *HTTPProvider) Distance(ctx context.Context, origin, destination string) (Route, error) {
	if p.cfg.APIKey == "" {
		return Route{}, ErrMissingCredential
	}

	query := url.Values{}
	query.Set("origin", origin)
	query.Set("destination", destination)
	query.Set("key", p.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"?"+query.Encode(), nil)
	if err != nil {
		return Route{}, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Route{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Route{}, fmt.Errorf("routing provider returned HTTP %d", resp.StatusCode)
	}

	var payload routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Route{}, fmt.Errorf("decode routing response: %w", err)
	}

	switch payload.Status {
	case "OK":
		return Route{
			Meters:  payload.Route.DistanceMeters,
			Seconds: payload.Route.DurationSeconds,
		}, nil
	case "NOT_FOUND", "ZERO_RESULTS":
		return Route{}, ErrNoRoute
	default:
		return Route{}, fmt.Errorf("routing provider status %q: %s", payload.Status, payload.Message)
	}
}
