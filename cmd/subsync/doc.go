// Command subsync is the CLI for the subsync daemon: it schedules sync jobs,
// inspects the queue, and manages configuration. Commands talk to a running
// daemon over its HTTP API and fall back to direct queue access when the
// daemon is not reachable.
package main
