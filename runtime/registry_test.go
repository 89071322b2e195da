package runtime

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"group-chat/domain"
	"group-chat/domain/event"
)

type captureSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (s *captureSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func posted(groupID domain.GroupID, text string) event.MessagePosted {
	return event.MessagePosted{Message: domain.Message{
		ID:      uuid.New(),
		GroupID: groupID,
		Payload: domain.Payload{Text: text},
	}}
}

func TestRegistry_Publish_Reaches_Subscribed_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	sessionID := uuid.NewString()
	groupID := domain.GroupID("g1")
	sink := &captureSink{}

	// Given a registered session subscribed to the group
	registry.Register(sessionID, "alice", sink)
	registry.Subscribe(sessionID, groupID)
	req.Len(registry.GetSinksForGroup(groupID), 1)

	// When a message is published
	registry.Publish(context.Background(), groupID, posted(groupID, "hi"))

	// Then the session observes exactly one event
	req.Equal(1, sink.count())
}

func TestRegistry_Publish_Skips_Other_Groups(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	sink := &captureSink{}

	registry.Register("s1", "alice", sink)
	registry.Subscribe("s1", "g1")

	registry.Publish(context.Background(), "g2", posted("g2", "elsewhere"))

	req.Equal(0, sink.count())
}

func TestRegistry_Subscribe_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	sink := &captureSink{}

	registry.Register("s1", "alice", sink)
	registry.Subscribe("s1", "g1")
	registry.Subscribe("s1", "g1")

	req.Len(registry.GetSinksForGroup("g1"), 1)

	// A single publish is delivered at most once per session.
	registry.Publish(context.Background(), "g1", posted("g1", "hi"))
	req.Equal(1, sink.count())
}

func TestRegistry_Subscribe_Unknown_Session_Is_Ignored(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())

	registry.Subscribe("ghost", "g1")

	req.Empty(registry.GetSinksForGroup("g1"))
}

func TestRegistry_SubscribeUser_Covers_All_Live_Sessions(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	sink1 := &captureSink{}
	sink2 := &captureSink{}
	other := &captureSink{}

	// Given two live sessions for alice and one for bob
	registry.Register("s1", "alice", sink1)
	registry.Register("s2", "alice", sink2)
	registry.Register("s3", "bob", other)

	// When alice joins a group durably
	registry.SubscribeUser("alice", "g1")

	// Then both of her sessions receive pushes, bob's does not
	registry.Publish(context.Background(), "g1", posted("g1", "hi"))
	req.Equal(1, sink1.count())
	req.Equal(1, sink2.count())
	req.Equal(0, other.count())
}

func TestRegistry_UnsubscribeAll_Stops_Delivery(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	sink := &captureSink{}

	registry.Register("s1", "alice", sink)
	registry.Subscribe("s1", "g1")
	registry.Subscribe("s1", "g2")

	registry.UnsubscribeAll("s1")

	registry.Publish(context.Background(), "g1", posted("g1", "hi"))
	registry.Publish(context.Background(), "g2", posted("g2", "hi"))
	req.Equal(0, sink.count())
	req.Empty(registry.GetSinksForGroup("g1"))
	req.Empty(registry.GetSinksForGroup("g2"))
}

func TestRegistry_Double_Disconnect_Is_Safe(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	sink := &captureSink{}
	other := &captureSink{}

	registry.Register("s1", "alice", sink)
	registry.Register("s2", "bob", other)
	registry.Subscribe("s1", "g1")
	registry.Subscribe("s2", "g1")

	registry.UnsubscribeAll("s1")
	registry.UnsubscribeAll("s1")

	// The surviving session still receives pushes.
	registry.Publish(context.Background(), "g1", posted("g1", "hi"))
	req.Equal(0, sink.count())
	req.Equal(1, other.count())
}

func TestRegistry_Concurrent_Subscribe_And_Publish(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	groupID := domain.GroupID("g1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		sessionID := uuid.NewString()
		go func() {
			defer wg.Done()
			registry.Register(sessionID, "user-"+sessionID, &captureSink{})
			registry.Subscribe(sessionID, groupID)
			registry.UnsubscribeAll(sessionID)
		}()
		go func() {
			defer wg.Done()
			registry.Publish(context.Background(), groupID, posted(groupID, "hi"))
		}()
	}
	wg.Wait()

	req.Empty(registry.GetSinksForGroup(groupID))
}
