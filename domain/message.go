// Package domain contains core concepts of the group messaging system.
// This file defines Message and its payload. Messages are immutable once
// created; there is no update or delete path.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Payload carries either plain text or an arbitrary structured value.
// Structured values are kept as raw JSON so the store never has to
// interpret them.
type Payload struct {
	Text string          `json:"text,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (p Payload) IsEmpty() bool {
	return p.Text == "" && len(p.Data) == 0
}

// Message is one immutable entry in a group's log. CreatedAt is assigned by
// the store and is strictly monotonic per group; Seq breaks ties between
// messages appended at the same instant, so (CreatedAt, Seq) is a total
// order within a group.
type Message struct {
	ID        uuid.UUID
	GroupID   GroupID
	AuthorID  string
	Payload   Payload
	Seq       uint64
	CreatedAt time.Time
}
