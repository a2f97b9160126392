// Package geo best-effort определение города и страны по IP клиента.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/SergeiKhy/scissors/internal/metrics"
	"github.com/SergeiKhy/scissors/internal/models"
	"go.uber.org/zap"
)

const defaultTimeout = 2 * time.Second

// Locator определяет локацию по IP. Никогда не возвращает ошибку: при сбое отдаёт Unknown.
type Locator interface {
	Locate(ctx context.Context, ip string) models.Location
}

// ipapiResponse ответ ipapi.co/<ip>/json/
type ipapiResponse struct {
	City        string `json:"city"`
	CountryName string `json:"country_name"`
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
}

// Client HTTP-клиент к сервису в формате ipapi.co
type Client struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(endpoint string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint:   endpoint,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) Locate(ctx context.Context, ip string) models.Location {
	if !isPublicIP(ip) {
		metrics.GeoLookupTotal.WithLabelValues("skipped").Inc()
		return models.UnknownPlace()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	loc, err := c.lookup(ctx, ip)
	if err != nil {
		metrics.GeoLookupTotal.WithLabelValues("failed").Inc()
		c.logger.Warn("Failed to fetch location data", zap.String("ip", ip), zap.Error(err))
		return models.UnknownPlace()
	}

	metrics.GeoLookupTotal.WithLabelValues("ok").Inc()
	return loc
}

func (c *Client) lookup(ctx context.Context, ip string) (models.Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/json/", c.endpoint, ip), nil)
	if err != nil {
		return models.Location{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Location{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Location{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body ipapiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.Location{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if body.Error {
		return models.Location{}, fmt.Errorf("lookup rejected: %s", body.Reason)
	}

	loc := models.UnknownPlace()
	if body.City != "" {
		loc.City = body.City
	}
	if body.CountryName != "" {
		loc.Country = body.CountryName
	}
	return loc, nil
}

// isPublicIP отсекает пустые, локальные и приватные адреса
func isPublicIP(raw string) bool {
	ip := net.ParseIP(raw)
	if ip == nil {
		return false
	}
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast())
}

// Static локатор, всегда возвращающий одну и ту же локацию
type Static models.Location

func (s Static) Locate(context.Context, string) models.Location {
	return models.Location(s)
}
