package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/shopstack/shopsync/internal/config"
	"github.com/shopstack/shopsync/internal/httpclient"
	"github.com/shopstack/shopsync/internal/logging"
	"github.com/shopstack/shopsync/internal/models"
	"github.com/shopstack/shopsync/internal/ratelimit"
)

// retryLogger adapts our logger to the retryablehttp.LeveledLogger interface.
// Only warnings and errors are surfaced; retry chatter stays quiet.
type retryLogger struct {
	log *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(fieldMap(keysAndValues)).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(fieldMap(keysAndValues)).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{})  {}
func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {}

func fieldMap(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if k, ok := keysAndValues[i].(string); ok {
			fields[k] = keysAndValues[i+1]
		}
	}
	return fields
}

// Client is the dashboard API client. List-like responses are returned as
// raw JSON so the envelope normalizer stays the single seam that absorbs the
// backend's inconsistent shapes.
type Client struct {
	httpClient *nethttp.Client
	// rawClient skips retry wrapping; used for uploads where a silent
	// replay would restart progress reporting mid-session.
	rawClient *nethttp.Client
	baseURL   string
	limiter   *ratelimit.Limiter
}

// NewClient creates an API client from the given configuration.
func NewClient(cfg *config.Config, log *logging.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base, err := httpclient.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = base
	retryClient.RetryMax = 4
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 10 * time.Second
	if log != nil {
		retryClient.Logger = &retryLogger{log: log}
	} else {
		retryClient.Logger = nil
	}

	return &Client{
		httpClient: retryClient.StandardClient(),
		rawClient:  base,
		baseURL:    strings.TrimSuffix(cfg.APIBaseURL, "/"),
		limiter:    ratelimit.NewAPILimiter(),
	}, nil
}

// doRequest performs a JSON request and returns the response body.
// Non-2xx responses become *Error with the server's message surfaced.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := nethttp.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// AddProduct creates a new catalog item.
func (c *Client) AddProduct(ctx context.Context, item models.CatalogItem) error {
	_, err := c.doRequest(ctx, nethttp.MethodPost, "/products/add_product", item)
	return err
}

// GetProducts fetches the full catalog as a raw envelope.
func (c *Client) GetProducts(ctx context.Context) ([]byte, error) {
	return c.doRequest(ctx, nethttp.MethodGet, "/products/get_products", nil)
}

// GetProduct fetches a single catalog item by product id.
func (c *Client) GetProduct(ctx context.Context, productID string) (models.CatalogItem, error) {
	body, err := c.doRequest(ctx, nethttp.MethodGet, "/products/get_product_id/"+url.PathEscape(productID), nil)
	if err != nil {
		return models.CatalogItem{}, err
	}

	var resp struct {
		Product models.CatalogItem `json:"product"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.CatalogItem{}, fmt.Errorf("failed to decode product: %w", err)
	}
	return resp.Product, nil
}

// UpdateProduct updates a catalog item by product id.
func (c *Client) UpdateProduct(ctx context.Context, productID string, item models.CatalogItem) error {
	_, err := c.doRequest(ctx, nethttp.MethodPut, "/products/update_product/"+url.PathEscape(productID), item)
	return err
}

// DeleteProduct deletes a catalog item by product id.
func (c *Client) DeleteProduct(ctx context.Context, productID string) error {
	_, err := c.doRequest(ctx, nethttp.MethodDelete, "/products/delete_product/"+url.PathEscape(productID), nil)
	return err
}

// AddBehavior creates a new behavior record.
func (c *Client) AddBehavior(ctx context.Context, rec models.BehaviorRecord) error {
	_, err := c.doRequest(ctx, nethttp.MethodPost, "/behavior/add_behavior", rec)
	return err
}

// GetBehaviors fetches the full behavior log as a raw envelope.
func (c *Client) GetBehaviors(ctx context.Context) ([]byte, error) {
	return c.doRequest(ctx, nethttp.MethodGet, "/behavior/get_behaviors", nil)
}

// UpdateBehavior updates a behavior record by its server-assigned id.
func (c *Client) UpdateBehavior(ctx context.Context, stableID string, rec models.BehaviorRecord) error {
	if stableID == "" {
		return ErrMissingIdentity
	}
	_, err := c.doRequest(ctx, nethttp.MethodPut, "/behavior/update_behavior/"+url.PathEscape(stableID), rec)
	return err
}

// DeleteBehavior deletes a behavior record by its server-assigned id.
func (c *Client) DeleteBehavior(ctx context.Context, stableID string) error {
	if stableID == "" {
		return ErrMissingIdentity
	}
	_, err := c.doRequest(ctx, nethttp.MethodDelete, "/behavior/delete_behavior/"+url.PathEscape(stableID), nil)
	return err
}

// GenerateRecommendations asks the backend to generate and persist
// recommendations for a user. The raw envelope goes through the normalizer.
func (c *Client) GenerateRecommendations(ctx context.Context, userID string) ([]byte, error) {
	return c.doRequest(ctx, nethttp.MethodGet, "/api/recommendations/"+url.PathEscape(userID), nil)
}

// StoredRecommendations fetches persisted recommendations for one user.
func (c *Client) StoredRecommendations(ctx context.Context, userID string) ([]byte, error) {
	return c.doRequest(ctx, nethttp.MethodGet, "/api/recommendations/stored/"+url.PathEscape(userID), nil)
}

// AllStoredRecommendations fetches every persisted recommendation set.
func (c *Client) AllStoredRecommendations(ctx context.Context) ([]byte, error) {
	return c.doRequest(ctx, nethttp.MethodGet, "/api/recommendations/stored", nil)
}
