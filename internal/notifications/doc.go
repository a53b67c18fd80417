// Package notifications delivers operational events to an ntfy topic.
//
// When no topic is configured the service degrades to a noop implementation
// so callers never need nil checks.
package notifications
