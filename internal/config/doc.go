// Package config loads, normalizes, and validates ariacut configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads .env files, and honours environment
// fallbacks such as OPENROUTER_API_KEY. The Config type centralizes every
// knob the runner and CLI need, from storage paths to alignment thresholds.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
