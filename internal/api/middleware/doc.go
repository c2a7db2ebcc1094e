// Package middleware provides the HTTP middleware stack for the provisioning API.
//
// Middleware stack includes:
//   - CORS: loopback origins by default, since requests can start shells
//   - RateLimit: per-IP token bucket rate limiting with idle client eviction
//   - RequestLogger: one zap line per request, tagged with the trace ID
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
