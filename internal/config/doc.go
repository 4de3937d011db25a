// Package config loads, normalizes, and validates Podium's TOML
// configuration. Defaults cover every field so a missing config file is not an
// error; paths are tilde-expanded and absolutized during normalization, and
// API keys fall back to environment variables.
package config
