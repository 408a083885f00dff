// Package handlers contains HTTP health checks and reusable middleware.
//
// # Health Checks
//
// The CompositeHealthChecker runs named checks in parallel. Critical checks
// decide readiness; advisory checks only mark the service as degraded:
//
//	checker := handlers.NewCompositeHealthChecker("v1")
//	checker.AddCheck("storage", handlers.NewPingCheck(blobStore))
//	checker.AddAdvisoryCheck("gemini", handlers.NewBreakerCheck(geminiClient))
//
//	status := checker.Check(ctx)
//
// # Middleware
//
// APIKeyAuth compares the X-API-Key header (or a Bearer token) against
// bcrypt hashes; generate one with HashKey or `concordia hash-key`.
// Middleware compose with Chain:
//
//	h := handlers.ChainHandler(mux,
//		handlers.SecurityHeadersMiddleware,
//		auth.Middleware,
//	)
package handlers
