// Package queue persists subtitle sync jobs in SQLite.
//
// Jobs are enqueued by the addon HTTP layer on cache misses and claimed by
// workflow workers through status transitions. The store deduplicates jobs by
// cache key so repeated player requests for the same title collapse onto one
// sync attempt, and heartbeat timestamps allow stale in-flight jobs to be
// reclaimed after a crash.
package queue
