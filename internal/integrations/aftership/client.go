package aftership

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BearBump/ShipSync/internal/integrations/tracker"
	"github.com/BearBump/ShipSync/internal/models"
	"github.com/pkg/errors"
)

const (
	DefaultBaseURL = "https://api.aftership.com/v4"
	apiKeyHeader   = "aftership-api-key"
)

// HTTPStatusError is returned when the tracking detail endpoint answers non-2xx.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("aftership http %d", e.StatusCode)
}

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: timeout,
		},
	}
}

type registerReq struct {
	Tracking struct {
		Slug           string `json:"slug"`
		TrackingNumber string `json:"tracking_number"`
	} `json:"tracking"`
}

type trackingResp struct {
	Data struct {
		Tracking struct {
			Tag              string `json:"tag"`
			ExpectedDelivery string `json:"expected_delivery"`
			TrackingURL      string `json:"tracking_url"`
		} `json:"tracking"`
	} `json:"data"`
}

// Register asks AfterShip to start tracking the pair. Any failure, including
// "tracking already exists", is reported as ignored.
func (c *Client) Register(ctx context.Context, q models.TrackingQuery) tracker.RegisterResult {
	var body registerReq
	body.Tracking.Slug = q.Slug
	body.Tracking.TrackingNumber = q.TrackingNumber

	b, err := json.Marshal(body)
	if err != nil {
		return tracker.Ignored(errors.Wrap(err, "marshal register"))
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/trackings", bytes.NewReader(b))
	if err != nil {
		return tracker.Ignored(err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return tracker.Ignored(errors.Wrap(err, "do request"))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return tracker.Ignored(fmt.Errorf("aftership register http %d", resp.StatusCode))
	}
	return tracker.Accepted()
}

func (c *Client) GetTracking(ctx context.Context, q models.TrackingQuery) (models.TrackingResult, error) {
	path := fmt.Sprintf("/trackings/%s/%s", url.PathEscape(q.Slug), url.PathEscape(q.TrackingNumber))
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return models.TrackingResult{}, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return models.TrackingResult{}, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return models.TrackingResult{}, &HTTPStatusError{StatusCode: resp.StatusCode}
	}

	var r trackingResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return models.TrackingResult{}, errors.Wrap(err, "decode")
	}

	t := r.Data.Tracking
	status := t.Tag
	if status == "" {
		status = models.StatusInTransit
	}
	return models.TrackingResult{
		Status: status,
		ETA:    strPtr(t.ExpectedDelivery),
		URL:    strPtr(t.TrackingURL),
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	// PathEscape уже применён, поэтому собираем RawPath вручную.
	u.RawPath = u.EscapedPath() + path
	u.Path, err = url.PathUnescape(u.RawPath)
	if err != nil {
		return nil, errors.Wrap(err, "build path")
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
