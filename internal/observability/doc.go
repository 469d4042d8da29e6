// Package observability records what the chat agent does and derives
// analytics from it. Events are appended to a JSON Lines log; metrics,
// catalog-gap suggestions, and alerts are computed on demand from that log.
package observability
