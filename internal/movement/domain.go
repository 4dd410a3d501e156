// Package movement owns the append-only inventory movement log and its
// change feed. Records are the audit trail of every quantity change: they are
// inserted once and never updated or deleted.
package movement

import (
	"errors"
	"time"
)

// Type enumerates movement directions.
type Type string

const (
	// TypeIn represents an inbound movement.
	TypeIn Type = "in"
	// TypeOut represents an outbound movement. Scan-triggered depletion
	// always writes this.
	TypeOut Type = "out"
)

// Record models one inventory movement.
type Record struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Type      Type      `json:"movement_type"`
	Quantity  int       `json:"quantity"`
	Notes     string    `json:"notes"`
	DeviceID  string    `json:"device_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrInvalidRecord indicates a record that cannot be appended.
var ErrInvalidRecord = errors.New("movement: invalid record")
