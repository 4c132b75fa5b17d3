// Package config loads, normalizes, and validates storyflow configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// STORYFLOW_BASE_URL. The Config type centralizes every knob the orchestrator
// and CLI need, allowing the remote task service, polling cadence, journal,
// and notification settings to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
