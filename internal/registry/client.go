// Package registry is an HTTP client for the remote patient registry.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/intake/internal/domain/attributes"
	"github.com/ehr/intake/internal/platform/metrics"
	"github.com/ehr/intake/internal/platform/middleware"
)

const (
	attributeTypeView = "custom:(uuid,display,format)"
	maxErrorBody      = 1 << 20
)

// ClientConfig configures a registry client.
type ClientConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client talks to the registry's REST API.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// NewClient creates a registry client. m may be nil.
func NewClient(cfg ClientConfig, logger zerolog.Logger, m *metrics.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		http:     &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "registry").Logger(),
		metrics:  m,
	}
}

// ListAttributeTypes fetches up to attributes.MaxTypes person-attribute types
// in the registry's order.
func (c *Client) ListAttributeTypes(ctx context.Context) (types []attributes.Type, err error) {
	start := time.Now()
	defer func() { c.metrics.ObserveRegistryCall("list_attribute_types", start, err) }()

	q := url.Values{}
	q.Set("v", attributeTypeView)
	q.Set("limit", strconv.Itoa(attributes.MaxTypes))

	req, err := c.newRequest(ctx, http.MethodGet, "/personattributetype?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("attribute type request failed")
		return nil, fmt.Errorf("list attribute types: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		rerr := decodeError(resp)
		c.logger.Warn().Int("status", resp.StatusCode).Err(rerr).Msg("attribute type request rejected")
		return nil, rerr
	}

	var list AttributeTypeList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode attribute types: %w: %v", ErrUnexpectedResponse, err)
	}

	types = make([]attributes.Type, 0, len(list.Results))
	for _, r := range list.Results {
		types = append(types, attributes.Type{ID: r.UUID, DisplayName: r.Display, Format: r.Format})
	}
	if len(types) > attributes.MaxTypes {
		types = types[:attributes.MaxTypes]
	}

	c.logger.Debug().Int("count", len(types)).Msg("fetched attribute types")
	return types, nil
}

// CreatePatient submits a new patient. A rejected request returns *Error.
func (c *Client) CreatePatient(ctx context.Context, body *CreatePatientRequest) (p *Patient, err error) {
	start := time.Now()
	defer func() { c.metrics.ObserveRegistryCall("create_patient", start, err) }()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal patient: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/patient", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("create patient request failed")
		return nil, fmt.Errorf("create patient: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		rerr := decodeError(resp)
		c.logger.Warn().Int("status", resp.StatusCode).Err(rerr).Msg("create patient rejected")
		return nil, rerr
	}

	p = new(Patient)
	if err := json.NewDecoder(resp.Body).Decode(p); err != nil {
		return nil, fmt.Errorf("decode patient: %w: %v", ErrUnexpectedResponse, err)
	}

	c.logger.Info().Str("patient_uuid", p.UUID).Msg("patient created")
	return p, nil
}

// Ping checks that the registry answers authenticated requests.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/personattributetype?limit=1", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ping registry: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping registry: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	if rid := middleware.RequestIDFromContext(ctx); rid != "" {
		req.Header.Set(middleware.RequestIDHeader, rid)
	}
	return req, nil
}

func decodeError(resp *http.Response) *Error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return newError(resp.StatusCode, nil)
	}
	var body ErrorResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return newError(resp.StatusCode, nil)
	}
	return newError(resp.StatusCode, &body)
}
