// Package runtime owns the live side of the system: the fan-out registry
// and the supervised background workers. It contains no domain rules.
package runtime

import (
	"context"
	"log/slog"
	"sync"

	"group-chat/contract"
	"group-chat/domain"
	"group-chat/domain/event"
)

type Set map[string]struct{}

// Registry is the live fan-out broker. It maps each group to the set of
// currently connected sessions subscribed to it and pushes persisted
// messages to them. Everything here is ephemeral and process-local; a
// session that is not connected at publish time relies on the durable log.
//
// Registry is safe for concurrent use. Publish snapshots the subscriber
// set under the read lock and delivers outside it, so subscribes and
// disconnects may interleave with a running publish without double
// delivery or skipped sinks.
type Registry struct {
	mu            sync.RWMutex
	log           *slog.Logger
	sinks         map[string]contract.EventSink   // sessionID -> live connection
	owners        map[string]string               // sessionID -> user identity
	ownerSessions map[string]Set                  // user identity -> sessionIDs
	groupSessions map[domain.GroupID]Set          // groupID -> subscribed sessionIDs
	sessionGroups map[string]map[domain.GroupID]struct{} // reverse index for UnsubscribeAll
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:           log,
		sinks:         make(map[string]contract.EventSink),
		owners:        make(map[string]string),
		ownerSessions: make(map[string]Set),
		groupSessions: make(map[domain.GroupID]Set),
		sessionGroups: make(map[string]map[domain.GroupID]struct{}),
	}
}

// Register announces a live session and its owning identity. A session
// starts with no subscriptions.
func (r *Registry) Register(sessionID, ownerID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sinks[sessionID] = sink
	r.owners[sessionID] = ownerID
	if _, ok := r.ownerSessions[ownerID]; !ok {
		r.ownerSessions[ownerID] = make(Set)
	}
	r.ownerSessions[ownerID][sessionID] = struct{}{}
}

// Subscribe adds a registered session to the group's subscriber set.
// Idempotent; subscribing an unknown session is ignored, since the session
// may already have disconnected.
func (r *Registry) Subscribe(sessionID string, groupID domain.GroupID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribeLocked(sessionID, groupID)
}

// SubscribeUser subscribes every live session owned by the user to the
// group. Called when a durable join happens so an already-connected client
// starts receiving pushes without reconnecting.
func (r *Registry) SubscribeUser(ownerID string, groupID domain.GroupID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sessionID := range r.ownerSessions[ownerID] {
		r.subscribeLocked(sessionID, groupID)
	}
}

func (r *Registry) subscribeLocked(sessionID string, groupID domain.GroupID) {
	if _, ok := r.sinks[sessionID]; !ok {
		return
	}
	if _, ok := r.groupSessions[groupID]; !ok {
		r.groupSessions[groupID] = make(Set)
	}
	r.groupSessions[groupID][sessionID] = struct{}{}
	if _, ok := r.sessionGroups[sessionID]; !ok {
		r.sessionGroups[sessionID] = make(map[domain.GroupID]struct{})
	}
	r.sessionGroups[sessionID][groupID] = struct{}{}
}

// UnsubscribeAll removes the session from every subscriber set and forgets
// it entirely. Idempotent: a double disconnect finds nothing to remove.
// Empty sets are dropped so the maps do not grow with session churn.
func (r *Registry) UnsubscribeAll(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for groupID := range r.sessionGroups[sessionID] {
		if members, ok := r.groupSessions[groupID]; ok {
			delete(members, sessionID)
			if len(members) == 0 {
				delete(r.groupSessions, groupID)
			}
		}
	}
	delete(r.sessionGroups, sessionID)

	if ownerID, ok := r.owners[sessionID]; ok {
		if sessions, ok := r.ownerSessions[ownerID]; ok {
			delete(sessions, sessionID)
			if len(sessions) == 0 {
				delete(r.ownerSessions, ownerID)
			}
		}
	}
	delete(r.owners, sessionID)
	delete(r.sinks, sessionID)
}

// GetSinksForGroup returns a snapshot of the live connections currently
// subscribed to the group. Returns nil for an unknown or empty group.
func (r *Registry) GetSinksForGroup(groupID domain.GroupID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions, ok := r.groupSessions[groupID]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for sessionID := range sessions {
		if sink, exists := r.sinks[sessionID]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}

// Publish delivers the event to every session subscribed to the group at
// publish time, at most once each. Delivery is best effort: a sink that
// cannot accept the event is logged and skipped, never retried, and never
// fails the caller. Persistence already succeeded upstream and is the
// source of truth.
func (r *Registry) Publish(ctx context.Context, groupID domain.GroupID, e event.DomainEvent) {
	for _, sink := range r.GetSinksForGroup(groupID) {
		if err := sink.Consume(ctx, e); err != nil {
			r.log.Warn("live push failed",
				"group_id", groupID,
				"event", e.EventName(),
				"error", err)
		}
	}
}
