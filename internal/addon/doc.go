// Package addon serves the Stremio addon HTTP surface and the daemon's
// management API on a single listener.
//
// Stremio routes follow the addon protocol: /manifest.json describes the
// addon, /subtitles/{type}/{id}... answers subtitle queries, and
// /static_subs/{file} serves synchronized subtitle files from the cache
// directory. A subtitle query for an uncached title schedules a background
// sync job and returns an empty list so the player never blocks.
//
// Management routes under /api expose queue inspection and mutation for the
// CLI, plus /healthz and Prometheus /metrics.
package addon
