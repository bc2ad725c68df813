// Package store keeps recent processing results in memory. Results are
// keyed by a generated ID, expire after a TTL and are capped in number; the
// oldest result is dropped first when the cap is reached.
package store
