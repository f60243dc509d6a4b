// Package config loads, normalizes, and validates whitewater configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML from --config, ~/.config/whitewater/config.toml or ./whitewater.toml,
// and honours WHITEWATER_LOG_LEVEL. Validation failures carry the
// configuration error marker so the CLI reports them consistently.
package config
