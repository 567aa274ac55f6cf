// Package websocket pushes snapshot lifecycle events to browser clients.
//
// A single Hub goroutine owns the client set. MarketService publishes
// through Hub.Broadcast; each Client has a write pump draining its send
// buffer and a read pump that only handles pongs and heartbeats.
//
// Messages are JSON envelopes:
//
//	{"type":"snapshot:ready","data":{...},"timestamp":"2024-03-01T09:15:00Z"}
//
// A client whose send buffer is full is disconnected rather than slowing
// down the hub.
package websocket
