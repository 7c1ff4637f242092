// Package observability builds the service's zap loggers and derives
// request-scoped children tagged with the request ID.
package observability
