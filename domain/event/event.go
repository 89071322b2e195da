// Package event defines the domain events flowing between the send
// pipeline, the live fan-out registry, and the background sinks.
package event

import (
	"time"

	"group-chat/domain"
)

type DomainEvent interface {
	EventName() string
}

// MessagePosted is emitted after a message has been durably appended to its
// group's log. It is the only event the live channel pushes to clients.
type MessagePosted struct {
	Message domain.Message
}

func (MessagePosted) EventName() string { return "message.posted" }

// MemberJoined is emitted when a user becomes a member of a group.
type MemberJoined struct {
	GroupID domain.GroupID
	UserID  string
	At      time.Time
}

func (MemberJoined) EventName() string { return "member.joined" }
