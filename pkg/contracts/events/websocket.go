// Package events defines the messages pushed to websocket clients.
package events

import "time"

// Message types
const (
	TypeConnection     = "connection"
	TypeSnapshotReady  = "snapshot:ready"
	TypeSnapshotFailed = "snapshot:failed"
)

// Connection is sent to a client right after it registers
type Connection struct {
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
}

// SnapshotFailed is broadcast when a reload could not build a snapshot.
// The previous snapshot, if any, keeps being served.
type SnapshotFailed struct {
	Source          string    `json:"source"`
	Error           string    `json:"error"`
	Reason          string    `json:"reason,omitempty"`
	ServingPrevious bool      `json:"serving_previous"`
	At              time.Time `json:"at"`
}
