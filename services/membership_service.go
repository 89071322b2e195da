package services

import (
	"context"
	"log/slog"
	"time"

	"group-chat/contract"
	"group-chat/domain"
	"group-chat/domain/event"
	"group-chat/repositories"
)

type IMembershipService interface {
	CreateGroup(ctx context.Context, name string) (domain.Group, error)
	JoinGroup(ctx context.Context, groupID domain.GroupID, userID string) error
	ListGroupsFor(ctx context.Context, userID string) ([]domain.Group, error)
	ListMembers(ctx context.Context, groupID domain.GroupID) ([]string, error)
}

// MembershipService owns the durable relation between users and groups.
// Membership is append-only: there is no leave operation, so a recorded
// member stays a member for the life of the group.
type MembershipService struct {
	groups repositories.IGroupRepository
	broker contract.IBroker
	log    *slog.Logger
}

func NewMembershipService(groups repositories.IGroupRepository, broker contract.IBroker, log *slog.Logger) *MembershipService {
	return &MembershipService{groups: groups, broker: broker, log: log}
}

func (s *MembershipService) CreateGroup(_ context.Context, name string) (domain.Group, error) {
	group, err := s.groups.Create(name)
	if err != nil {
		return domain.Group{}, err
	}
	s.log.Info("group created", "group_id", group.ID, "name", name)
	return group, nil
}

// JoinGroup durably records the membership, then tells the broker so any
// already-connected session of this user starts receiving pushes without
// reconnecting. Joining twice is a no-op; only a new membership is
// announced to the group's live sessions.
func (s *MembershipService) JoinGroup(ctx context.Context, groupID domain.GroupID, userID string) error {
	added, err := s.groups.AddMember(groupID, userID)
	if err != nil {
		return err
	}
	s.broker.SubscribeUser(userID, groupID)
	if added {
		s.broker.Publish(ctx, groupID, event.MemberJoined{
			GroupID: groupID,
			UserID:  userID,
			At:      time.Now().UTC(),
		})
		s.log.Info("member joined", "group_id", groupID, "user_id", userID)
	}
	return nil
}

func (s *MembershipService) ListGroupsFor(_ context.Context, userID string) ([]domain.Group, error) {
	return s.groups.ListForUser(userID)
}

func (s *MembershipService) ListMembers(_ context.Context, groupID domain.GroupID) ([]string, error) {
	group, err := s.groups.Get(groupID)
	if err != nil {
		return nil, err
	}
	return group.Members, nil
}
