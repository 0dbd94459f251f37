// Package cloudflare is a small client for the zone and DNS record endpoints
// of the Cloudflare v4 API.
//
// List endpoints return only the first page of results. Accounts with more
// zones or records than fit on one page may not find their target.
package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-logr/logr"
)

// DefaultBaseURL is the public API endpoint.
const DefaultBaseURL = "https://api.cloudflare.com/client/v4"

var (
	errMissingResult = errors.New("response has no result")
	errNotSuccessful = errors.New("response reported success=false")
)

// Client talks to the zone and DNS record endpoints.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	log     logr.Logger
}

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL points the client at a different API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		u, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("parsing base URL: %w", err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("base URL %q must be an absolute http(s) URL", baseURL)
		}
		c.baseURL = strings.TrimRight(baseURL, "/")
		return nil
	}
}

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("http client cannot be nil")
		}
		c.client = hc
		return nil
	}
}

// New creates a client authenticating with the given API token.
func New(log logr.Logger, token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("cloudflare: API token cannot be empty")
	}
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		client:  &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
		log:     log,
	}
	for i, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("cloudflare: option %d: %w", i, err)
		}
	}
	return c, nil
}

// ListZones returns the first page of zones visible to the token.
func (c *Client) ListZones(ctx context.Context) ([]Zone, error) {
	return getPage[Zone](ctx, c, "/zones")
}

// GetZone returns the details of a single zone.
func (c *Client) GetZone(ctx context.Context, zoneID string) (Zone, error) {
	var resp response[Zone]
	path := "/zones/" + url.PathEscape(zoneID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return Zone{}, err
	}
	if resp.Result == nil {
		return Zone{}, &APIError{Method: http.MethodGet, Path: path, Messages: messages(resp.Errors), Err: errMissingResult}
	}
	return *resp.Result, nil
}

// ListDNSRecords returns the first page of records in a zone.
func (c *Client) ListDNSRecords(ctx context.Context, zoneID string) ([]DNSRecord, error) {
	return getPage[DNSRecord](ctx, c, "/zones/"+url.PathEscape(zoneID)+"/dns_records")
}

// CreateDNSRecord adds a record to a zone.
func (c *Client) CreateDNSRecord(ctx context.Context, zoneID string, params RecordParams) (DNSRecord, error) {
	path := "/zones/" + url.PathEscape(zoneID) + "/dns_records"
	return c.writeRecord(ctx, http.MethodPost, path, params)
}

// UpdateDNSRecord replaces an existing record.
func (c *Client) UpdateDNSRecord(ctx context.Context, zoneID, recordID string, params RecordParams) (DNSRecord, error) {
	path := "/zones/" + url.PathEscape(zoneID) + "/dns_records/" + url.PathEscape(recordID)
	return c.writeRecord(ctx, http.MethodPut, path, params)
}

func (c *Client) writeRecord(ctx context.Context, method, path string, params RecordParams) (DNSRecord, error) {
	var resp response[DNSRecord]
	if err := c.do(ctx, method, path, params, &resp); err != nil {
		return DNSRecord{}, err
	}
	if !resp.Success {
		return DNSRecord{}, &APIError{Method: method, Path: path, Messages: messages(resp.Errors), Err: errNotSuccessful}
	}
	if resp.Result == nil {
		return DNSRecord{}, &APIError{Method: method, Path: path, Err: errMissingResult}
	}
	return *resp.Result, nil
}

func getPage[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var resp pagedResponse[T]
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Result == nil {
		return nil, &APIError{Method: http.MethodGet, Path: path, Messages: messages(resp.Errors), Err: errMissingResult}
	}
	if info := resp.ResultInfo; info != nil && info.TotalPages > 1 {
		c.log.Info("only the first page of results is considered", "path", path,
			"page", info.Page, "totalPages", info.TotalPages, "totalCount", info.TotalCount)
	}
	return *resp.Result, nil
}

// do builds and executes a request and decodes the JSON envelope into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &APIError{Method: method, Path: path, Err: fmt.Errorf("marshal request body: %w", err)}
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return &APIError{Method: method, Path: path, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	c.log.V(1).Info("sending request", "method", method, "path", path)
	resp, err := c.client.Do(req)
	if err != nil {
		return &APIError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env struct {
			Errors []responseMessage `json:"errors"`
		}
		_ = json.Unmarshal(data, &env)
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Messages:   messages(env.Errors),
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Err: errors.New("empty response envelope")}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
