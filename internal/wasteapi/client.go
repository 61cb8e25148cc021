package wasteapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the production endpoint of the 2GO waste API.
	DefaultBaseURL = "https://wasteapi.2go-mobile.com/api"

	// companyCode identifies Twentemilieu at the 2GO backend. The API is
	// multi-tenant but this service only ever talks to one company.
	companyCode = "8d97bb56-5afd-4cbc-a651-b4f7314264b4"

	// The upstream accepts any well-formed request, but the official app
	// sends browser-like headers and we mimic those.
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_11_2) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/47.0.2526.106 Safari/537.36"
	referer   = "https://www.twentemilieu.nl/enschede"

	dateLayout = "2006-01-02"
)

var (
	ErrRequest         = errors.New("error making waste api request")
	ErrStatus          = errors.New("error status from waste api")
	ErrParse           = errors.New("error parsing waste api response")
	ErrAddressNotFound = errors.New("address not found")
)

var (
	// UpstreamRequests counts outbound API calls by action and outcome.
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wasteapi_upstream_requests_total",
			Help: "Number of requests made to the waste API by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	// UpstreamLatency observes outbound API call duration by action.
	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "wasteapi_upstream_request_duration_seconds",
			Help: "Duration of requests made to the waste API.",
		},
		[]string{"action"},
	)
)

// ClientConfig holds configuration options for the API client.
type ClientConfig struct {
	BaseURL        string
	RateLimit      float64       // outbound requests per second
	RateLimitBurst int           // maximum outbound burst size
	CacheSize      int           // size of the resolved-address LRU cache
	Timeout        time.Duration // per-request timeout
}

// DefaultClientConfig returns a ClientConfig with sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:        DefaultBaseURL,
		RateLimit:      1.0,
		RateLimitBurst: 2,
		CacheSize:      128,
		Timeout:        30 * time.Second,
	}
}

// Client talks to the 2GO waste API. All calls are form-encoded POSTs
// against a fixed base URL with the company code merged into the body.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	addrCache  *lru.Cache
	timeout    time.Duration
	logger     *logrus.Logger
}

// NewClient creates a new API client.
func NewClient(cfg ClientConfig, logger *logrus.Logger) (*Client, error) {
	cache, err := lru.New(cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		addrCache:  cache,
		timeout:    cfg.Timeout,
		logger:     logger,
	}, nil
}

type addressResponse struct {
	DataList []struct {
		UniqueID string `json:"UniqueId"`
	} `json:"dataList"`
}

// CalendarResponse is the raw GetCalendar payload.
type CalendarResponse struct {
	DataList []PickupType `json:"dataList"`
}

// PickupType groups the upcoming pickup dates of one trash type.
type PickupType struct {
	PickupTypeText string   `json:"_pickupTypeText"`
	PickupDates    []string `json:"pickupDates"`
}

// ResolveAddress looks up the unique address id for a postcode and house
// number. The upstream answers an empty dataList with HTTP 200 when it does
// not know the address; that surfaces as ErrAddressNotFound, not as a
// transport error. Resolved ids are stable, so they are memoized.
func (c *Client) ResolveAddress(ctx context.Context, postcode, houseNumber string) (string, error) {
	cacheKey := postcode + ":" + houseNumber
	if id, ok := c.addrCache.Get(cacheKey); ok {
		return id.(string), nil
	}

	body, err := c.post(ctx, "FetchAdress", url.Values{
		"postCode":    {postcode},
		"houseNumber": {houseNumber},
	})
	if err != nil {
		return "", err
	}

	var addr addressResponse
	if err := json.Unmarshal(body, &addr); err != nil {
		return "", fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(addr.DataList) == 0 {
		return "", fmt.Errorf("%w: %s %s", ErrAddressNotFound, postcode, houseNumber)
	}

	id := addr.DataList[0].UniqueID
	c.addrCache.Add(cacheKey, id)
	return id, nil
}

// FetchCalendar retrieves the raw pickup calendar for an address between
// start and end, both sent as YYYY-MM-DD.
func (c *Client) FetchCalendar(ctx context.Context, addressID string, start, end time.Time) (*CalendarResponse, error) {
	body, err := c.post(ctx, "GetCalendar", url.Values{
		"uniqueAddressId": {addressID},
		"startDate":       {start.Format(dateLayout)},
		"endDate":         {end.Format(dateLayout)},
	})
	if err != nil {
		return nil, err
	}

	var cal CalendarResponse
	if err := json.Unmarshal(body, &cal); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &cal, nil
}

// post sends one form-encoded POST to {baseURL}/{action} with the company
// code merged into the body and returns the raw response body.
func (c *Client) post(ctx context.Context, action string, form url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}

	form.Set("companyCode", companyCode)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+action, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", referer)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		UpstreamRequests.WithLabelValues(action, "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer resp.Body.Close()

	UpstreamLatency.WithLabelValues(action).Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		UpstreamRequests.WithLabelValues(action, "error").Inc()
		return nil, fmt.Errorf("%w: got %d", ErrStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		UpstreamRequests.WithLabelValues(action, "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}

	UpstreamRequests.WithLabelValues(action, "success").Inc()

	c.logger.WithFields(logrus.Fields{
		"action":   action,
		"duration": time.Since(start).String(),
	}).Debug("waste api request completed")

	return body, nil
}
