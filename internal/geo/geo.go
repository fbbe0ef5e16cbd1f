// Package geo acquires the device position used for real-time alerts.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

var ErrUnavailable = errors.New("geolocation unavailable")

// Position is a single fix.
type Position struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Options mirror the browser geolocation request options.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// DefaultOptions are used for real-time alerts.
var DefaultOptions = Options{
	HighAccuracy: true,
	Timeout:      10 * time.Second,
	MaximumAge:   60 * time.Second,
}

type Locator interface {
	CurrentPosition(ctx context.Context, opts Options) (Position, error)
}

// CurrentPosition calls l bounded by opts.Timeout. A nil locator reports
// ErrUnavailable.
func CurrentPosition(ctx context.Context, l Locator, opts Options) (Position, error) {
	if l == nil {
		return Position{}, ErrUnavailable
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	return l.CurrentPosition(ctx, opts)
}

// Fixed always reports the same position, e.g. a fix passed on the command line.
type Fixed struct {
	Lat, Lon float64
	Clock    clock.Clock
}

func (f Fixed) CurrentPosition(ctx context.Context, _ Options) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	c := f.Clock
	if c == nil {
		c = clock.New()
	}
	return Position{Lat: f.Lat, Lon: f.Lon, Timestamp: c.Now()}, nil
}

// HTTPLocator asks a JSON endpoint for the current position. The endpoint
// must answer {"lat": .., "lon": ..} or {"latitude": .., "longitude": ..}.
type HTTPLocator struct {
	URL    string
	Client *http.Client
	Logger *logrus.Logger
}

func (h *HTTPLocator) CurrentPosition(ctx context.Context, opts Options) (Position, error) {
	if h.URL == "" {
		return Position{}, ErrUnavailable
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return Position{}, fmt.Errorf("geo request: %w", err)
	}
	q := req.URL.Query()
	if opts.HighAccuracy {
		q.Set("high_accuracy", "true")
	}
	req.URL.RawQuery = q.Encode()

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Position{}, fmt.Errorf("geo request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Position{}, fmt.Errorf("geo request: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Lat       *float64 `json:"lat"`
		Lon       *float64 `json:"lon"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Accuracy  float64  `json:"accuracy"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Position{}, fmt.Errorf("geo response: %w", err)
	}
	lat, lon := body.Lat, body.Lon
	if lat == nil || lon == nil {
		lat, lon = body.Latitude, body.Longitude
	}
	if lat == nil || lon == nil {
		return Position{}, fmt.Errorf("geo response: %w", ErrUnavailable)
	}
	if h.Logger != nil {
		h.Logger.WithFields(logrus.Fields{"lat": *lat, "lon": *lon}).Debug("position acquired")
	}
	return Position{Lat: *lat, Lon: *lon, Accuracy: body.Accuracy, Timestamp: time.Now()}, nil
}
