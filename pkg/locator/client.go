// Package locator talks to the external relocation service over HTTP.
package locator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/relocation"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	// DefaultTimeout is the default request timeout
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum response body size (10MB)
	MaxResponseSize = 10 * 1024 * 1024
)

// Config holds relocation service client configuration
type Config struct {
	BaseURL string
	// Available lists the locator names the service offers
	Available []string
	Timeout   time.Duration
}

// Factory creates locator clients by name
type Factory struct {
	client *http.Client
	cfg    Config
	logger ectologger.Logger
}

func NewFactory(cfg Config, logger ectologger.Logger) *Factory {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Factory{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger,
	}
}

// Create returns a client for the named locator, or relocation.ErrLocatorUnavailable
func (f *Factory) Create(name string) (relocation.Locator, error) {
	if !ectolinq.Contains(f.cfg.Available, name) {
		return nil, fmt.Errorf("%w: %s", relocation.ErrLocatorUnavailable, name)
	}
	return &Client{name: name, factory: f}, nil
}

// Client is one configured locator of the relocation service
type Client struct {
	name     string
	factory  *Factory
	settings relocation.Settings
}

type relocateRequest struct {
	Profile               string         `json:"profile,omitempty"`
	FixedDepth            *float64       `json:"fixed_depth,omitempty"`
	DistanceCutOff        *float64       `json:"distance_cutoff,omitempty"`
	IgnoreInitialLocation bool           `json:"ignore_initial_location"`
	Origin                *models.Origin `json:"origin"`
	Picks                 []models.Pick  `json:"picks"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (c *Client) Name() string {
	return c.name
}

func (c *Client) Configure(settings relocation.Settings) error {
	c.settings = settings
	return nil
}

// Relocate posts the origin and its picks to the service. A 422 response is the
// locator rejecting the input and is returned as a relocation.ComputationError.
func (c *Client) Relocate(ctx context.Context, origin *models.Origin, picks []models.Pick) (*models.Origin, error) {
	ctx, span := tracing.StartSpan(ctx, "locator.Client.Relocate")
	defer span.End()

	body, err := json.Marshal(relocateRequest{
		Profile:               c.settings.Profile,
		FixedDepth:            c.settings.FixedDepth,
		DistanceCutOff:        c.settings.DistanceCutOff,
		IgnoreInitialLocation: c.settings.IgnoreInitialLocation,
		Origin:                origin,
		Picks:                 picks,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode relocation request")
	}

	endpoint, err := url.JoinPath(c.factory.cfg.BaseURL, "v1", "locators", url.PathEscape(c.name), "relocate")
	if err != nil {
		return nil, errors.Wrap(err, "invalid relocation service url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build relocation request")
	}
	req.Header.Set("Content-Type", "application/json")

	log := c.factory.logger.WithContext(ctx).WithFields(map[string]any{
		"locator":   c.name,
		"profile":   c.settings.Profile,
		"origin_id": origin.ID,
	})

	start := time.Now()
	resp, err := c.factory.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "relocation service request for locator %s failed", c.name)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read relocation response")
	}

	log.WithFields(map[string]any{
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Relocation service responded")

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		var failure errorResponse
		_ = json.Unmarshal(respBody, &failure)
		if failure.Message == "" {
			failure.Message = string(respBody)
		}
		return nil, &relocation.ComputationError{Locator: c.name, Err: errors.New(failure.Message)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, errors.Errorf("relocation service returned status %d for locator %s", resp.StatusCode, c.name)
	}

	var relocated models.Origin
	if err := json.Unmarshal(respBody, &relocated); err != nil {
		return nil, errors.Wrap(err, "failed to decode relocated origin")
	}
	return &relocated, nil
}
