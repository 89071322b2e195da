package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"group-chat/contract"
	"group-chat/domain"
	"group-chat/domain/event"
	apperrors "group-chat/errors"
	"group-chat/moderation"
	"group-chat/repositories"
	"group-chat/search"
)

type IChatService interface {
	Send(ctx context.Context, groupID domain.GroupID, authorID string, payload domain.Payload) (domain.Message, error)
	History(ctx context.Context, userID string) ([]domain.Message, error)
	GroupHistory(ctx context.Context, userID string, groupID domain.GroupID, cursor *string) ([]domain.Message, *string, error)
	Search(ctx context.Context, userID, query string, limit int) ([]search.Hit, error)
}

// ChatService is the send pipeline: validate, check membership, censor,
// append durably, then fan out. The durable store and the live broker are
// two independently failing systems joined only at the append→publish
// handoff; a push failure never rolls back a persisted message.
type ChatService struct {
	groups    repositories.IGroupRepository
	messages  repositories.IMessageRepository
	broker    contract.IBroker
	moderator *moderation.Moderator
	index     *search.Index
	events    chan<- event.DomainEvent
	log       *slog.Logger

	mu        sync.Mutex
	sendLocks map[domain.GroupID]*sync.Mutex
}

func NewChatService(
	groups repositories.IGroupRepository,
	messages repositories.IMessageRepository,
	broker contract.IBroker,
	moderator *moderation.Moderator,
	index *search.Index,
	events chan<- event.DomainEvent,
	log *slog.Logger,
) *ChatService {
	return &ChatService{
		groups:    groups,
		messages:  messages,
		broker:    broker,
		moderator: moderator,
		index:     index,
		events:    events,
		log:       log,
		sendLocks: make(map[domain.GroupID]*sync.Mutex),
	}
}

// sendLock serializes append→publish per group so broker publish order
// equals store append completion order. Different groups send concurrently.
func (s *ChatService) sendLock(groupID domain.GroupID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.sendLocks[groupID]
	if !ok {
		l = &sync.Mutex{}
		s.sendLocks[groupID] = l
	}
	return l
}

// Send persists the message and pushes it to every live session currently
// subscribed to the group. The message is durable before any push happens;
// the returned message carries the store-assigned timestamp.
func (s *ChatService) Send(ctx context.Context, groupID domain.GroupID, authorID string, payload domain.Payload) (domain.Message, error) {
	if payload.IsEmpty() {
		return domain.Message{}, fmt.Errorf("empty message: %w", apperrors.ErrValidation)
	}

	group, err := s.groups.Get(groupID)
	if err != nil {
		return domain.Message{}, err
	}
	if !group.HasMember(authorID) {
		return domain.Message{}, fmt.Errorf("user %s in group %s: %w", authorID, groupID, apperrors.ErrForbidden)
	}

	if s.moderator != nil && payload.Text != "" {
		payload.Text = s.moderator.Censor(payload.Text)
	}

	l := s.sendLock(groupID)
	l.Lock()
	message, err := s.messages.Append(groupID, authorID, payload)
	if err != nil {
		l.Unlock()
		return domain.Message{}, err
	}
	s.broker.Publish(ctx, groupID, event.MessagePosted{Message: message})
	l.Unlock()

	// Background projections (search index) are fed without blocking; a
	// full channel costs an index entry, never a send.
	select {
	case s.events <- event.MessagePosted{Message: message}:
	default:
		s.log.Debug("event channel full, message not indexed", "message_id", message.ID)
	}

	return message, nil
}

// History returns the union of the logs of every group the caller belongs
// to, newest first. A group the caller is not a member of can never appear
// because the group list itself is derived from membership.
func (s *ChatService) History(ctx context.Context, userID string) ([]domain.Message, error) {
	groups, err := s.groups.ListForUser(userID)
	if err != nil {
		return nil, err
	}
	groupIDs := lo.Map(groups, func(g domain.Group, _ int) domain.GroupID { return g.ID })
	return s.messages.ListForGroups(groupIDs)
}

// GroupHistory pages through one group's log, newest first.
func (s *ChatService) GroupHistory(ctx context.Context, userID string, groupID domain.GroupID, cursor *string) ([]domain.Message, *string, error) {
	group, err := s.groups.Get(groupID)
	if err != nil {
		return nil, nil, err
	}
	if !group.HasMember(userID) {
		return nil, nil, fmt.Errorf("user %s in group %s: %w", userID, groupID, apperrors.ErrForbidden)
	}
	return s.messages.ListForGroup(groupID, cursor)
}

// Search runs a full-text query over the caller's groups only.
func (s *ChatService) Search(ctx context.Context, userID, query string, limit int) ([]search.Hit, error) {
	if query == "" {
		return nil, fmt.Errorf("empty query: %w", apperrors.ErrValidation)
	}
	groups, err := s.groups.ListForUser(userID)
	if err != nil {
		return nil, err
	}
	groupIDs := lo.Map(groups, func(g domain.Group, _ int) domain.GroupID { return g.ID })
	return s.index.Search(ctx, query, groupIDs, limit)
}
