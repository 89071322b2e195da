// Package domain contains core concepts of the group messaging system.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"time"
)

type GroupID string

// Group is a durable, uniquely identified collection of member user
// identities sharing a message log. Membership is append-only: members are
// added, never removed.
type Group struct {
	ID        GroupID
	Name      string
	Members   []string
	CreatedAt time.Time
}

func (g Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}
