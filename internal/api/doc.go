// Package api defines wire-format types and converters for the daemon's HTTP
// API, plus the client the CLI uses to talk to a running daemon. It translates
// internal queue models into transport-friendly DTOs so consumers never couple
// to internal types.
//
// DTOs use camelCase JSON tags. Internal enums (queue.Status) are exposed as
// lowercase strings. Timestamps use RFC3339 with milliseconds.
package api
