package storage

import (
	"errors"
	"time"

	"github.com/memovo/memovo/pkg/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// SessionUpdate carries optional field updates for a chat session. Nil
// fields are left unchanged.
type SessionUpdate struct {
	Title       *string
	LastMessage *string
	UpdatedAt   *time.Time
}

// SnapshotUpdate carries an optional replacement payload for an episodic
// snapshot. A nil payload leaves the record unchanged.
type SnapshotUpdate struct {
	Payload *types.Snapshot
}
