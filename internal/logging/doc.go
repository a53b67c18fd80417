// Package logging provides the slog configuration shared by the daemon and
// CLI: a human-oriented console handler, a JSON handler for file output, and
// helpers for standardized attribute keys.
package logging
