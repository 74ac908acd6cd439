package atmotube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	telemetry "atmotube-export/internal/telemetry/domain"
)

// Fixed query parameters. Only the first page is ever requested.
const (
	DefaultOrder  = "desc"
	DefaultFormat = "json"
	DefaultOffset = 0
	DefaultLimit  = 50
)

var (
	errEmptyURL    = errors.New("atmotube: empty url")
	errEmptyAPIKey = errors.New("atmotube: empty api key")
	// ErrMissingData is returned when the response body has no data object.
	ErrMissingData = errors.New("atmotube: response missing data")
)

// Client is a minimal Atmotube cloud API client.
type Client struct {
	endpoint *url.URL
	apiKey   string
	client   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// NewClient constructs a client for the data endpoint at rawURL.
func NewClient(rawURL, apiKey string, opts ...Option) (*Client, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, errEmptyURL
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errEmptyAPIKey
	}
	endpoint, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("atmotube: parse url: %w", err)
	}
	if endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("atmotube: invalid url %q", rawURL)
	}
	c := &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type dataResponse struct {
	Data *dataPage `json:"data"`
}

type dataPage struct {
	Total int               `json:"total"`
	Items []json.RawMessage `json:"items"`
}

// Fetch requests one page of telemetry for device over window.
func (c *Client) Fetch(ctx context.Context, device string, window telemetry.Window) (telemetry.Batch, error) {
	if device == "" {
		return telemetry.Batch{}, telemetry.ErrEmptyDevice
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(device, window), nil)
	if err != nil {
		return telemetry.Batch{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return telemetry.Batch{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return telemetry.Batch{}, fmt.Errorf("atmotube: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return telemetry.Batch{}, &telemetry.StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var decoded dataResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return telemetry.Batch{}, fmt.Errorf("atmotube: decode: %w", err)
	}
	if decoded.Data == nil {
		return telemetry.Batch{}, ErrMissingData
	}
	return telemetry.Batch{Total: decoded.Data.Total, Items: decoded.Data.Items}, nil
}

func (c *Client) requestURL(device string, window telemetry.Window) string {
	u := *c.endpoint
	query := u.Query()
	query.Set("api_key", c.apiKey)
	query.Set("mac", device)
	query.Set("order", DefaultOrder)
	query.Set("format", DefaultFormat)
	query.Set("offset", strconv.Itoa(DefaultOffset))
	query.Set("limit", strconv.Itoa(DefaultLimit))
	query.Set("start_date", window.StartKey())
	query.Set("end_date", window.EndKey())
	u.RawQuery = query.Encode()
	return u.String()
}
