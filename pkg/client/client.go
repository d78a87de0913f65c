package client

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

	"github.com/google/uuid"

	"github.com/bft-labs/orderly/pkg/log"
)

const (
	itemsEndpoint  = "/api/items"
	selectEndpoint = "/api/select"
	orderEndpoint  = "/api/order"
	stateEndpoint  = "/api/state"

	defaultTimeout = 30 * time.Second
)

// HTTPClient abstracts HTTP request execution for testing and custom transports.
// The standard *http.Client satisfies this interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Item is one record as served by the API.
type Item struct {
	ID    int64  `json:"id"`
	Value string `json:"value"`
}

// ItemsPage is one window of the filtered order.
type ItemsPage struct {
	Items   []Item `json:"items"`
	HasMore bool   `json:"hasMore"`
	Total   int    `json:"total"`
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Body)
}

// Client calls the orderly HTTP API on behalf of one client id.
type Client struct {
	baseURL  string
	http     HTTPClient
	clientID string
	logger   log.Logger
}

// Option configures optional behavior of a Client.
type Option func(*Client)

// WithHTTPClient sets the transport used for requests.
func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClientID sets the id under which selections are stored. By default a
// random UUID is used.
func WithClientID(id string) Option {
	return func(c *Client) {
		c.clientID = id
	}
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: defaultTimeout},
		clientID: uuid.NewString(),
		logger:   log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClientID returns the id sent with selection and order requests.
func (c *Client) ClientID() string {
	return c.clientID
}

// Items fetches limit records starting at offset among those whose value
// contains search, ignoring case.
func (c *Client) Items(ctx context.Context, search string, offset, limit int) (ItemsPage, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	if search != "" {
		q.Set("search", search)
	}
	q.Set("clientId", c.clientID)

	var page ItemsPage
	if err := c.do(ctx, http.MethodGet, itemsEndpoint+"?"+q.Encode(), nil, &page); err != nil {
		return ItemsPage{}, err
	}
	return page, nil
}

// Select marks ids selected or deselected.
func (c *Client) Select(ctx context.Context, ids []int64, selected bool) error {
	body := struct {
		ClientID string  `json:"clientId"`
		IDs      []int64 `json:"ids"`
		Selected bool    `json:"selected"`
	}{c.clientID, ids, selected}
	return c.do(ctx, http.MethodPost, selectEndpoint, body, nil)
}

// Order submits ids as the new relative order of those records.
func (c *Client) Order(ctx context.Context, ids []int64) error {
	body := struct {
		ClientID string  `json:"clientId"`
		Order    []int64 `json:"order"`
	}{c.clientID, ids}
	return c.do(ctx, http.MethodPost, orderEndpoint, body, nil)
}

// State returns the ids currently selected for this client.
func (c *Client) State(ctx context.Context) ([]int64, error) {
	var resp struct {
		Selected []int64 `json:"selected"`
	}
	path := stateEndpoint + "?clientId=" + url.QueryEscape(c.clientID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Selected, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api call",
		log.String("method", method),
		log.String("path", path),
		log.Int("status", resp.StatusCode),
		log.Duration("took", time.Since(start)),
	)

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
