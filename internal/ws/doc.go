// Package ws streams recent processing results to WebSocket subscribers.
//
// Hub.ServeHTTP upgrades the connection and sends the current list at once;
// Hub.Run then broadcasts it every interval. Connecting with ?series=<id>
// narrows the stream to one series. A subscriber whose outbox is full is
// dropped rather than slowing the others.
package ws
