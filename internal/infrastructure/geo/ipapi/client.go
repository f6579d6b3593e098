package ipapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/complaints-api/internal/core/domain"
	"github.com/kirillkom/complaints-api/internal/core/ports"
	"github.com/kirillkom/complaints-api/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL = "http://ip-api.com"
	DefaultTimeout = 3 * time.Second
)

// Lookup outcomes reported to the recorder.
const (
	OutcomeFound       = "found"
	OutcomeCached      = "cached"
	OutcomeSkipped     = "skipped"
	OutcomeUnavailable = "unavailable"
)

type Recorder interface {
	RecordGeoLookup(outcome string)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      ports.GeoCache
	executor   *resilience.Executor
	recorder   Recorder
}

type Options struct {
	BaseURL  string
	Timeout  time.Duration
	Cache    ports.GeoCache
	Executor *resilience.Executor
	Recorder Recorder
}

func New(options Options) *Client {
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cache:      options.Cache,
		executor:   options.Executor,
		recorder:   options.Recorder,
	}
}

// Lookup resolves ip to a location. It returns nil on any failure.
func (c *Client) Lookup(ctx context.Context, ip string) *domain.Location {
	ip = strings.TrimSpace(ip)
	if !isPublicAddress(ip) {
		c.record(OutcomeSkipped)
		return nil
	}

	if loc := c.cached(ctx, ip); loc != nil {
		c.record(OutcomeCached)
		return loc
	}

	loc, err := resilience.Do(ctx, c.executor, "geo.lookup", func(callCtx context.Context) (*domain.Location, error) {
		return c.fetch(callCtx, ip)
	}, classifyLookupError)
	if err != nil {
		c.record(OutcomeUnavailable)
		slog.WarnContext(ctx, "geolocation_lookup_failed", "ip", ip, "error", err)
		return nil
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, ip, *loc); err != nil {
			slog.WarnContext(ctx, "geolocation_cache_write_failed", "ip", ip, "error", err)
		}
	}
	c.record(OutcomeFound)
	return loc
}

func (c *Client) cached(ctx context.Context, ip string) *domain.Location {
	if c.cache == nil {
		return nil
	}
	loc, ok, err := c.cache.Get(ctx, ip)
	if err != nil {
		slog.WarnContext(ctx, "geolocation_cache_read_failed", "ip", ip, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	return loc
}

type lookupResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Country string `json:"country"`
	City    string `json:"city"`
	Query   string `json:"query"`
}

func (c *Client) fetch(ctx context.Context, ip string) (*domain.Location, error) {
	endpoint := fmt.Sprintf("%s/json/%s?fields=status,message,country,city,query", c.baseURL, url.PathEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create geo request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrGeolocationUnavailable, "geo request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, domain.WrapError(domain.ErrGeolocationUnavailable, "geo request", fmt.Errorf("status %s", resp.Status))
	}

	var body lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return nil, domain.WrapError(domain.ErrGeolocationUnavailable, "decode geo response", err)
	}
	if body.Status != "success" {
		return nil, domain.WrapError(domain.ErrGeolocationUnavailable, "geo lookup",
			fmt.Errorf("%w: status=%q message=%q", errAddressRejected, body.Status, body.Message))
	}

	resolved := body.Query
	if resolved == "" {
		resolved = ip
	}
	return &domain.Location{IP: resolved, Country: body.Country, City: body.City}, nil
}

// errAddressRejected marks an ip-api answer about one address (reserved
// range, invalid query) rather than a failure of the service.
var errAddressRejected = errors.New("address rejected by ip-api")

func classifyLookupError(err error) resilience.ErrorClassification {
	switch {
	case errors.Is(err, errAddressRejected), errors.Is(err, context.Canceled):
		return resilience.ErrorClassification{}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}

func (c *Client) record(outcome string) {
	if c.recorder != nil {
		c.recorder.RecordGeoLookup(outcome)
	}
}

func isPublicAddress(raw string) bool {
	ip := net.ParseIP(raw)
	if ip == nil {
		return false
	}
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() || ip.IsMulticast())
}
