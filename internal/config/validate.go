package config

import (
	"errors"
	"fmt"
	"sort"

	"ariacut/internal/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAlignment(); err != nil {
		return err
	}
	if err := c.validateWindow(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAlignment() error {
	a := c.Alignment
	if err := ensureUnitInterval(map[string]float64{
		"alignment.high":                     a.High,
		"alignment.medium":                   a.Medium,
		"alignment.containment":              a.Containment,
		"alignment.text_weight":              a.TextWeight,
		"alignment.proximity_weight":         a.ProximityWeight,
		"alignment.anchor":                   a.Anchor,
		"alignment.anchor_text_high":         a.AnchorTextHigh,
		"alignment.route_a_mean":             a.RouteAMean,
		"alignment.route_b_mean":             a.RouteBMean,
		"alignment.route_b_max_low_fraction": a.RouteBMaxLowFraction,
	}); err != nil {
		return err
	}
	if a.Medium > a.High {
		return errors.New("alignment.medium must not exceed alignment.high")
	}
	if a.RouteBMean > a.RouteAMean {
		return errors.New("alignment.route_b_mean must not exceed alignment.route_a_mean")
	}
	if sum := a.TextWeight + a.ProximityWeight; sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("alignment.text_weight + alignment.proximity_weight must equal 1, got %g", sum)
	}
	if a.ProximityWindowSeconds <= 0 {
		return errors.New("alignment.proximity_window_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWindow() error {
	if c.Window.DefaultSpanSeconds <= 0 {
		return errors.New("window.default_span_seconds must be positive")
	}
	if c.Window.OverlayHoldSeconds <= 0 {
		return errors.New("window.overlay_hold_seconds must be positive")
	}
	return nil
}

func (c *Config) validateTranslation() error {
	for _, lang := range c.Translation.TargetLanguages {
		if code, err := language.Canonical(lang); err != nil || code != lang {
			return fmt.Errorf("translation.target_languages: %q is not an ISO 639 code", lang)
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.poll_interval":         c.Workflow.PollInterval,
		"workflow.error_retry_interval":  c.Workflow.ErrorRetryInterval,
		"workflow.workers":               c.Workflow.Workers,
		"workflow.stage_timeout_seconds": c.Workflow.StageTimeoutSeconds,
		"llm.timeout_seconds":            c.LLM.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for _, key := range sortedKeys(values) {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func ensureUnitInterval(values map[string]float64) error {
	for _, key := range sortedKeys(values) {
		if v := values[key]; v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %g", key, v)
		}
	}
	return nil
}

func sortedKeys[V any](values map[string]V) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
