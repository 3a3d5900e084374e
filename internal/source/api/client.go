// Package api reads sales, appointments and lookups from the backend REST API.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/spamanager/spa-manager/internal/dashboard"
	"github.com/spamanager/spa-manager/internal/reporting"
)

const maxBody = 32 << 20

// Config configures the client.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client wraps the backend REST API. It implements dashboard.Source.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ dashboard.Source = (*Client)(nil)

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api: %s %s returned status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("api: %s %s returned status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// NewClient constructs a client for the API rooted at cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api: invalid base url %q", cfg.BaseURL)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: base, token: cfg.Token, httpClient: httpClient, logger: logger}, nil
}

// Ping checks that the backend answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "/health", nil)
	return err
}

// ListSales fetches the daily log. Cancelled rows are requested only when the
// visibility needs them.
func (c *Client) ListSales(ctx context.Context, q dashboard.SalesQuery) ([]reporting.SaleRecord, error) {
	params := url.Values{}
	if b := strings.TrimSpace(q.BranchID); b != "" && !strings.EqualFold(b, reporting.AllBranches) {
		params.Set("branch_id", b)
	}
	switch q.Visibility {
	case reporting.AllRecords:
		params.Set("include_cancelled", "true")
	case reporting.CancelledOnly:
		params.Set("only_cancelled", "true")
	}
	return list(ctx, c, "/sales", params, wireSale.record)
}

// ListAppointments fetches every appointment.
func (c *Client) ListAppointments(ctx context.Context) ([]reporting.AppointmentRecord, error) {
	return list(ctx, c, "/appointments", nil, wireAppointment.record)
}

// ListBranches fetches the branch table.
func (c *Client) ListBranches(ctx context.Context) ([]reporting.BranchRef, error) {
	return list(ctx, c, "/branches", nil, wireBranch.record)
}

// ListProducts fetches the product table.
func (c *Client) ListProducts(ctx context.Context) ([]reporting.ProductRef, error) {
	return list(ctx, c, "/products", nil, wireProduct.record)
}

// ListLeads fetches the lead pipeline.
func (c *Client) ListLeads(ctx context.Context) ([]reporting.LeadRef, error) {
	return list(ctx, c, "/leads", nil, wireLead.record)
}

func list[W, R any](ctx context.Context, c *Client, path string, params url.Values, convert func(W) R) ([]R, error) {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}
	wires, err := decodeList[W](body)
	if err != nil {
		return nil, fmt.Errorf("api: decode %s: %w", path, err)
	}
	out := make([]R, 0, len(wires))
	for _, w := range wires {
		out = append(out, convert(w))
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	requestID := middleware.GetReqID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(middleware.RequestIDHeader, requestID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("upstream request",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", requestID),
		slog.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &StatusError{Method: http.MethodGet, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("api: read %s: %w", path, err)
	}
	if len(body) > maxBody {
		return nil, errors.New("api: response too large")
	}
	return body, nil
}
