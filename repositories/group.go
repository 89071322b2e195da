package repositories

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"group-chat/domain"
	apperrors "group-chat/errors"
)

type IGroupRepository interface {
	Create(name string) (domain.Group, error)
	Get(groupID domain.GroupID) (domain.Group, error)
	AddMember(groupID domain.GroupID, userID string) (bool, error)
	ListForUser(userID string) ([]domain.Group, error)
}

type GroupRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewGroupRepository(db *badger.DB, log *slog.Logger) GroupRepository {
	return GroupRepository{db: db, log: log}
}

// groupRecord is the stored shape of a group. Membership is kept inline:
// groups never shrink and member sets stay small enough for a single value.
type groupRecord struct {
	ID        string   `cbor:"id"`
	Name      string   `cbor:"name"`
	Members   []string `cbor:"members"`
	CreatedAt int64    `cbor:"created_at"`
}

func groupKey(id domain.GroupID) []byte {
	return []byte("group:" + string(id))
}

// memberKey is a secondary index "gm:{user}:{group}" so that listing a
// user's groups is a prefix scan instead of a full table walk. Written in
// the same transaction as the membership update.
func memberKey(userID string, groupID domain.GroupID) []byte {
	return []byte(fmt.Sprintf("gm:%s:%s", userID, groupID))
}

// Create stores a new group with a fresh identifier and an empty member
// set. It only fails when the store does.
func (g GroupRepository) Create(name string) (domain.Group, error) {
	now := time.Now().UTC()
	record := groupRecord{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now.UnixNano(),
	}
	bytes, err := cbor.Marshal(record)
	if err != nil {
		return domain.Group{}, err
	}
	err = g.db.Update(func(txn *badger.Txn) error {
		return txn.Set(groupKey(domain.GroupID(record.ID)), bytes)
	})
	if err != nil {
		return domain.Group{}, fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}
	return toGroup(record), nil
}

func (g GroupRepository) Get(groupID domain.GroupID) (domain.Group, error) {
	var record groupRecord
	err := g.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(groupKey(groupID))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return cbor.Unmarshal(value, &record)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Group{}, fmt.Errorf("group %s: %w", groupID, apperrors.ErrNotFound)
	}
	if err != nil {
		return domain.Group{}, err
	}
	return toGroup(record), nil
}

// AddMember idempotently adds the user to the group's member set and
// reports whether the membership is new. Adding an existing member is a
// no-op, not an error. Fails with ErrNotFound when the group does not
// exist. Concurrent joins to the same group race on the group record;
// losing transactions are retried against the fresh member set.
func (g GroupRepository) AddMember(groupID domain.GroupID, userID string) (bool, error) {
	var added bool
	err := runUpdate(g.db, func(txn *badger.Txn) error {
		added = false
		item, err := txn.Get(groupKey(groupID))
		if err != nil {
			return err
		}
		var record groupRecord
		if err := item.Value(func(value []byte) error {
			return cbor.Unmarshal(value, &record)
		}); err != nil {
			return err
		}
		for _, m := range record.Members {
			if m == userID {
				return nil
			}
		}
		record.Members = append(record.Members, userID)
		bytes, err := cbor.Marshal(record)
		if err != nil {
			return err
		}
		if err := txn.Set(groupKey(groupID), bytes); err != nil {
			return err
		}
		if err := txn.Set(memberKey(userID, groupID), []byte(record.ID)); err != nil {
			return err
		}
		added = true
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, fmt.Errorf("group %s: %w", groupID, apperrors.ErrNotFound)
	}
	if err != nil {
		return false, err
	}
	return added, nil
}

// ListForUser walks the "gm:{user}:" index and resolves each group record.
// Iteration order is lexicographic over group identifiers, so repeated
// calls are stable absent mutation.
func (g GroupRepository) ListForUser(userID string) ([]domain.Group, error) {
	var ids []domain.GroupID
	err := g.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("gm:%s:", userID))
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, domain.GroupID(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var groups []domain.Group
	for _, id := range ids {
		group, err := g.Get(id)
		if errors.Is(err, apperrors.ErrNotFound) {
			// Dangling index entry; skip rather than fail the listing.
			g.log.Warn("membership index references missing group", "group_id", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func toGroup(record groupRecord) domain.Group {
	return domain.Group{
		ID:        domain.GroupID(record.ID),
		Name:      record.Name,
		Members:   record.Members,
		CreatedAt: time.Unix(0, record.CreatedAt).UTC(),
	}
}
