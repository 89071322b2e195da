package contract

import (
	"context"
	"reflect"

	"group-chat/domain"
	"group-chat/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself. Supervision (restart, panic recovery) is
// the supervisor's job.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// for logging and supervision purposes.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink consumes a domain event. A sink must never block: a slow
// consumer drops and reports an error instead of stalling the publisher.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IBroker is the live fan-out: it maps groups to the currently connected
// sessions and pushes persisted messages to them. Sessions are ephemeral
// and process-local; nothing here is durable.
type IBroker interface {
	// Register announces a new live session owned by a user identity.
	Register(sessionID, ownerID string, sink EventSink)
	// Subscribe idempotently adds a registered session to a group's
	// subscriber set.
	Subscribe(sessionID string, groupID domain.GroupID)
	// SubscribeUser subscribes every live session owned by the user.
	// Used when a durable join happens while sessions are connected.
	SubscribeUser(ownerID string, groupID domain.GroupID)
	// UnsubscribeAll removes the session from every subscriber set and
	// forgets it. Idempotent; called on disconnect.
	UnsubscribeAll(sessionID string)
	// Publish delivers the event to every session currently subscribed to
	// the group, at most once per session, best effort.
	Publish(ctx context.Context, groupID domain.GroupID, e event.DomainEvent)
}
