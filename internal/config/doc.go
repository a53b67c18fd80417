// Package config loads, normalizes, and validates subsync configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENSUBTITLES_API_KEY. The Config type centralizes every knob the daemon
// and CLI need: work directories, the HTTP bind address, OpenSubtitles
// credentials, and sync tool settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
