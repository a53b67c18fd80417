// Package workflow drives background processing of the sync queue.
//
// A configurable pool of workers polls the queue for pending jobs, claims
// them with an atomic status transition, and runs the sync pipeline under a
// per-job timeout. Each in-flight job emits heartbeats so jobs orphaned by a
// crash are reclaimed and retried after the heartbeat timeout expires.
package workflow
