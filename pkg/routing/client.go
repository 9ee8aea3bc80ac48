// Package routing resolves road distances between coordinates through an
// OSRM-compatible routing service.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/entregave/dispatch-backend/pkg/errors"
	"github.com/entregave/dispatch-backend/pkg/geo"
)

const (
	defaultBaseURL              = "https://router.project-osrm.org"
	defaultTimeout              = 5 * time.Second
	errorBodyReadLimit    int64 = 1024
	routeProfile                = "driving"
)

// Route is the resolved road leg between two points.
type Route struct {
	DistanceKm   float64
	DistanceText string
	DurationText string
}

// Client queries the OSRM route API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured OSRM base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds the OSRM client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// Route resolves the driving leg from origin to destination. OSRM expects
// coordinates ordered longitude,latitude.
func (c *Client) Route(ctx context.Context, origin, destination geo.Point) (*Route, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "routing client not configured")
	}

	url := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?overview=false",
		strings.TrimRight(c.baseURL, "/"), routeProfile,
		origin.Lng, origin.Lat, destination.Lng, destination.Lat)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build route request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute route request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("routing service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var payload osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode route response")
	}

	if payload.Code != "Ok" || len(payload.Routes) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("routing service found no route (code %q)", payload.Code))
	}

	leg := payload.Routes[0]
	km := leg.Distance / 1000
	return &Route{
		DistanceKm:   km,
		DistanceText: fmt.Sprintf("%.1f km", km),
		DurationText: fmt.Sprintf("%.0f min", leg.Duration/60),
	}, nil
}
