// Package daemon wires the queue store, sync workflow, and addon HTTP server
// into a single supervised process. A file lock in the log directory enforces
// one daemon instance per working directory.
package daemon
