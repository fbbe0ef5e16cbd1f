// Package backend talks to the alert backend over HTTP.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"emergency-alert/internal/config"
	"emergency-alert/internal/model"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.Code, e.Body)
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *logrus.Logger
}

// NewClient returns a client for baseURL. httpClient may be nil; requests
// carry no client-side timeout beyond what the transport imposes.
func NewClient(baseURL string, httpClient *http.Client, logger *logrus.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// FetchRoster loads the roster for key. The telegram source resolves a chat
// id to its community; the url source lists a community by name.
func (c *Client) FetchRoster(ctx context.Context, source config.IdentitySource, key string) (model.Roster, error) {
	if source == config.SourceURL {
		var members []model.Member
		if err := c.get(ctx, "fetch roster", "/api/ubicaciones/"+url.PathEscape(key), &members); err != nil {
			return model.Roster{}, err
		}
		return model.Roster{Comunidad: key, Miembros: members}, nil
	}

	var roster model.Roster
	if err := c.get(ctx, "fetch roster", "/api/comunidad_por_chat/"+url.PathEscape(key), &roster); err != nil {
		return model.Roster{}, err
	}
	return roster, nil
}

// SendAlert posts the alert once. Non-2xx and undecodable bodies are errors.
func (c *Client) SendAlert(ctx context.Context, payload model.AlertPayload) (model.AlertResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return model.AlertResponse{}, fmt.Errorf("marshal alert: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/alert", bytes.NewReader(body))
	if err != nil {
		return model.AlertResponse{}, fmt.Errorf("send alert: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out model.AlertResponse
	if err := c.do(req, "send alert", &out); err != nil {
		return model.AlertResponse{}, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, op, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return c.do(req, op, out)
}

func (c *Client) do(req *http.Request, op string, out interface{}) error {
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	log := c.logger.WithFields(logrus.Fields{
		"method":     req.Method,
		"path":       req.URL.Path,
		"request_id": requestID,
	})

	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Error("backend unreachable")
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.WithField("status", resp.StatusCode).Warn("backend returned error status")
		return &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.WithError(err).Error("malformed backend response")
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	log.WithField("status", resp.StatusCode).Debug("backend request done")
	return nil
}
