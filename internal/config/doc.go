// Package config loads, normalizes, and validates intake configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts),
// reads TOML files, and honours the INTAKE_DIRECTORY environment fallback.
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical names, and clear validation errors.
package config
