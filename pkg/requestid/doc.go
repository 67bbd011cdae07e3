// Package requestid tags every inbound request with a correlation id.
//
// Middleware reuses a well-formed X-Request-ID from the client or generates a
// UUID, stores it in the request context and echoes it in the response.
// LoggerExtractor adds it to every slog record written with that context, and
// Propagate forwards it on outbound vendor calls.
package requestid
