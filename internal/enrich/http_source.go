package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HTTPSource queries an external JSON endpoint.
// Contract: GET {endpoint}/health answers 200 when available;
// GET {endpoint}/query?lat=&lng= answers a flat JSON object.
type HTTPSource struct {
	name        string
	endpoint    string
	placeholder func() map[string]any
	client      *http.Client
}

func NewHTTP(name, endpoint string, placeholder func() map[string]any) *HTTPSource {
	return &HTTPSource{
		name:        name,
		endpoint:    strings.TrimRight(endpoint, "/"),
		placeholder: placeholder,
		client:      &http.Client{Timeout: 3 * time.Second},
	}
}

// NewSoil and NewWeather bind the two providers the field form shows.
func NewSoil(endpoint string) *HTTPSource    { return NewHTTP("soil", endpoint, SoilPlaceholder) }
func NewWeather(endpoint string) *HTTPSource { return NewHTTP("weather", endpoint, WeatherPlaceholder) }

func (h *HTTPSource) Name() string { return h.name }

func (h *HTTPSource) Placeholder() map[string]any {
	if h.placeholder == nil {
		return nil
	}
	return h.placeholder()
}

// Heartbeat probes /health; any status other than 200 marks the source down.
func (h *HTTPSource) Heartbeat(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s health: status %d", h.name, resp.StatusCode)
	}
	return nil
}

func (h *HTTPSource) Query(ctx context.Context, lat, lng float64) (map[string]any, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(lng, 'f', -1, 64))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint+"/query?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s query: status %d", h.name, resp.StatusCode)
	}
	var m map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("%s query: %w", h.name, err)
	}
	return m, nil
}
