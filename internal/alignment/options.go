package alignment

import (
	"errors"
	"fmt"
	"log/slog"

	"ariacut/internal/config"
	"ariacut/internal/logging"
)

// Thresholds are the tuned constants of the aligner and merger.
type Thresholds struct {
	// High and Medium split line-match scores into flags.
	High   float64
	Medium float64
	// Containment is the score floor when one normalized text contains the other.
	Containment float64

	// TextWeight and ProximityWeight combine text similarity and start-time
	// proximity when anchoring guided segments on blind ones.
	TextWeight      float64
	ProximityWeight float64
	// ProximityWindow is the start-time distance (seconds) at which proximity reaches zero.
	ProximityWindow float64
	// Anchor is the minimum combined score for a guided segment to claim a blind one.
	Anchor float64
	// AnchorTextHigh is the text-only score above which an anchored segment is HIGH.
	AnchorTextHigh float64

	// RouteAMean and RouteBMean are the minimum mean confidences for routes A and B.
	RouteAMean float64
	RouteBMean float64
	// RouteBMaxLowFraction is the exclusive ceiling on the LOW fraction for route B.
	RouteBMaxLowFraction float64

	// InterpolateGaps re-places unanchored segments between their anchors.
	InterpolateGaps bool
}

// DefaultThresholds returns the production tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		High:                 0.85,
		Medium:               0.50,
		Containment:          0.85,
		TextWeight:           0.7,
		ProximityWeight:      0.3,
		ProximityWindow:      30,
		Anchor:               0.5,
		AnchorTextHigh:       0.75,
		RouteAMean:           0.85,
		RouteBMean:           0.60,
		RouteBMaxLowFraction: 0.30,
	}
}

// Validate reports thresholds that cannot produce a meaningful alignment.
func (t Thresholds) Validate() error {
	for name, v := range map[string]float64{
		"high":                     t.High,
		"medium":                   t.Medium,
		"containment":              t.Containment,
		"text_weight":              t.TextWeight,
		"proximity_weight":         t.ProximityWeight,
		"anchor":                   t.Anchor,
		"anchor_text_high":         t.AnchorTextHigh,
		"route_a_mean":             t.RouteAMean,
		"route_b_mean":             t.RouteBMean,
		"route_b_max_low_fraction": t.RouteBMaxLowFraction,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %g", name, v)
		}
	}
	if t.Medium > t.High {
		return errors.New("medium must not exceed high")
	}
	if t.RouteBMean > t.RouteAMean {
		return errors.New("route_b_mean must not exceed route_a_mean")
	}
	if sum := t.TextWeight + t.ProximityWeight; sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("text_weight + proximity_weight must equal 1, got %g", sum)
	}
	if t.ProximityWindow <= 0 {
		return errors.New("proximity_window must be positive")
	}
	return nil
}

// Option configures an Aligner.
type Option func(*Aligner)

// WithThresholds replaces the default tuning.
func WithThresholds(t Thresholds) Option {
	return func(a *Aligner) { a.thresholds = t }
}

// WithLogger sets the logger used for alignment summaries.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aligner) { a.logger = logging.NewComponentLogger(logger, "aligner") }
}

// ThresholdsFromConfig maps the [alignment] config section onto Thresholds.
func ThresholdsFromConfig(cfg config.Alignment) Thresholds {
	return Thresholds{
		High:                 cfg.High,
		Medium:               cfg.Medium,
		Containment:          cfg.Containment,
		TextWeight:           cfg.TextWeight,
		ProximityWeight:      cfg.ProximityWeight,
		ProximityWindow:      cfg.ProximityWindowSeconds,
		Anchor:               cfg.Anchor,
		AnchorTextHigh:       cfg.AnchorTextHigh,
		RouteAMean:           cfg.RouteAMean,
		RouteBMean:           cfg.RouteBMean,
		RouteBMaxLowFraction: cfg.RouteBMaxLowFraction,
		InterpolateGaps:      cfg.InterpolateGaps,
	}
}
