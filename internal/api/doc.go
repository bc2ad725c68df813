// Package api implements the rcsclean HTTP API.
//
// New(policy, store, opts...) returns an http.Handler that serves:
//
//	POST /api/v1/rcs/process    clean one series, store and return the result
//	GET  /api/v1/rcs/process    endpoint description
//	GET  /api/v1/health         status, active backend, policy, counts
//	GET  /api/v1/reports        recent results, newest first (no samples)
//	GET  /api/v1/reports/{id}   one result with samples and diagnostics
//	GET  /api/v1/alerts         firing and recently resolved quality alerts
//	GET  /api/v1/plot-config    Plotly polar layout, ?title= sets the title
//
// All endpoints respond with Content-Type: application/json and return 405
// for unsupported methods. Errors are {"success": false, "error": "..."}.
// Process requests are validated with go-playground/validator struct tags
// and, when auth mode is apikey, must carry the configured key header.
//
// A null rcs sample is read as a missing (NaN) value. SetPolicy swaps the
// processing policy atomically for config hot reload.
package api
