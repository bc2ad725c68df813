// Package types defines the shared in-memory representations of angular
// measurement series and the reports produced while cleaning them.
// They are used by the core packages (validate, repair, pipeline) and by
// the service layer (api, store, alerts, ws) alike.
package types
