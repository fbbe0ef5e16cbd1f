package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

type countingLocator struct {
	calls int
	pos   Position
	err   error
}

func (c *countingLocator) CurrentPosition(ctx context.Context, _ Options) (Position, error) {
	c.calls++
	return c.pos, c.err
}

type blockingLocator struct{}

func (blockingLocator) CurrentPosition(ctx context.Context, _ Options) (Position, error) {
	<-ctx.Done()
	return Position{}, ctx.Err()
}

func TestCurrentPosition_NilLocator(t *testing.T) {
	if _, err := CurrentPosition(context.Background(), nil, DefaultOptions); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestCurrentPosition_Timeout(t *testing.T) {
	opts := DefaultOptions
	opts.Timeout = 20 * time.Millisecond

	_, err := CurrentPosition(context.Background(), blockingLocator{}, opts)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestCached_MaximumAge(t *testing.T) {
	mock := clock.NewMock()
	inner := &countingLocator{pos: Position{Lat: 1, Lon: 2}}
	c := &Cached{Locator: inner, Cache: NewMemoryCache(), Key: "42", Clock: mock}
	ctx := context.Background()

	first, err := c.CurrentPosition(ctx, DefaultOptions)
	if err != nil {
		t.Fatalf("first fix: %v", err)
	}
	if !first.Timestamp.Equal(mock.Now()) {
		t.Fatalf("expected timestamp stamped from clock, got %v", first.Timestamp)
	}

	mock.Add(59 * time.Second)
	if _, err := c.CurrentPosition(ctx, DefaultOptions); err != nil {
		t.Fatalf("cached fix: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected cached position within maximum age, locator called %d times", inner.calls)
	}

	mock.Add(2 * time.Second)
	if _, err := c.CurrentPosition(ctx, DefaultOptions); err != nil {
		t.Fatalf("fresh fix: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected stale cache to be bypassed, locator called %d times", inner.calls)
	}
}

func TestCached_LocatorError(t *testing.T) {
	inner := &countingLocator{err: ErrUnavailable}
	c := &Cached{Locator: inner, Cache: NewMemoryCache(), Key: "k"}
	if _, err := c.CurrentPosition(context.Background(), DefaultOptions); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestHTTPLocator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("high_accuracy") != "true" {
			t.Errorf("high accuracy hint not forwarded: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"latitude":-12.05,"longitude":-77.04,"accuracy":15}`))
	}))
	defer srv.Close()

	l := &HTTPLocator{URL: srv.URL}
	pos, err := l.CurrentPosition(context.Background(), DefaultOptions)
	if err != nil {
		t.Fatalf("CurrentPosition: %v", err)
	}
	if pos.Lat != -12.05 || pos.Lon != -77.04 || pos.Accuracy != 15 {
		t.Fatalf("unexpected position: %+v", pos)
	}
}

func TestHTTPLocator_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	l := &HTTPLocator{URL: srv.URL}
	if _, err := l.CurrentPosition(context.Background(), DefaultOptions); err == nil {
		t.Fatal("expected error on 503")
	}
}

func TestHTTPLocator_NoURL(t *testing.T) {
	l := &HTTPLocator{}
	if _, err := l.CurrentPosition(context.Background(), DefaultOptions); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
