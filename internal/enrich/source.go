// Package enrich attaches auxiliary data (soil, weather) to completed fields.
// Sources are external and unreliable: every answer that is missing, late or
// comes from an unhealthy source is replaced by the source's placeholder
// values, so field completion never waits on them.
package enrich

import "context"

// Source is one auxiliary data provider.
type Source interface {
	Name() string
	Query(ctx context.Context, lat, lng float64) (map[string]any, error)
	Heartbeat(ctx context.Context) error
	// Placeholder is returned whenever the source cannot answer.
	Placeholder() map[string]any
}

// Result is one source's contribution to a field record.
type Result struct {
	Source      string         `json:"source"`
	Values      map[string]any `json:"values"`
	Placeholder bool           `json:"placeholder,omitempty"`
	Reason      string         `json:"reason,omitempty"`
}

// Fallback reasons.
const (
	ReasonUnhealthy = "unhealthy"
	ReasonTimeout   = "timeout"
	ReasonError     = "error"
	ReasonCanceled  = "canceled"
)

func placeholder(s Source, reason string) Result {
	vals := s.Placeholder()
	if vals == nil {
		vals = map[string]any{}
	}
	return Result{Source: s.Name(), Values: vals, Placeholder: true, Reason: reason}
}

// SoilPlaceholder and WeatherPlaceholder are the defaults shown while no
// provider answers.
func SoilPlaceholder() map[string]any {
	return map[string]any{"soilType": "unknown", "ph": nil, "organicMatterPct": nil}
}

func WeatherPlaceholder() map[string]any {
	return map[string]any{"temperatureC": nil, "precipitationMm": nil, "condition": "unknown"}
}
