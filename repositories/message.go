package repositories

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"group-chat/domain"
	apperrors "group-chat/errors"
)

type IMessageRepository interface {
	Append(groupID domain.GroupID, authorID string, payload domain.Payload) (domain.Message, error)
	ListForGroup(groupID domain.GroupID, cursor *string) ([]domain.Message, *string, error)
	ListForGroups(groupIDs []domain.GroupID) ([]domain.Message, error)
}

// MessageRepository is the append-only, per-group ordered log. Append is
// the single point of ordering truth: the creation timestamp is assigned
// here, never by the client, and no message is visible to readers or the
// broker before Append returns.
type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int

	mu     sync.Mutex
	clocks map[domain.GroupID]*groupClock
}

// groupClock serializes timestamp assignment per group. lastNanos only
// moves forward, so two appends to the same group can never share a
// timestamp; seq is the insertion counter used as the key tie-breaker.
type groupClock struct {
	mu        sync.Mutex
	lastNanos int64
	seq       uint64
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) *MessageRepository {
	return &MessageRepository{
		db:            db,
		log:           log,
		limitMessages: limitMessages,
		clocks:        make(map[domain.GroupID]*groupClock),
	}
}

type messageRecord struct {
	ID       string `cbor:"id"`
	GroupID  string `cbor:"group_id"`
	AuthorID string `cbor:"author_id"`
	Text     string `cbor:"text,omitempty"`
	Data     []byte `cbor:"data,omitempty"`
	Seq      uint64 `cbor:"seq"`
	At       int64  `cbor:"at"`
}

// messageKey formats "msg:{group}:{nanos}:{seq}" with zero padding so a
// plain lexicographic scan over the prefix is a chronological scan. The
// sequence suffix keeps keys unique and ties the key order to insertion
// order.
func messageKey(groupID domain.GroupID, nanos int64, seq uint64) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%012d", groupID, nanos, seq))
}

func messagePrefix(groupID domain.GroupID) []byte {
	return []byte(fmt.Sprintf("msg:%s:", groupID))
}

func (m *MessageRepository) clock(groupID domain.GroupID) *groupClock {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clocks[groupID]
	if !ok {
		c = &groupClock{}
		m.clocks[groupID] = c
	}
	return c
}

// Append durably stores a message for the group and returns it with its
// assigned timestamp and sequence. Fails with ErrNotFound when the group
// does not exist; the existence check and the write share one transaction.
func (m *MessageRepository) Append(groupID domain.GroupID, authorID string, payload domain.Payload) (domain.Message, error) {
	c := m.clock(groupID)
	c.mu.Lock()
	defer c.mu.Unlock()

	nanos := time.Now().UTC().UnixNano()
	if nanos <= c.lastNanos {
		nanos = c.lastNanos + 1
	}
	seq := c.seq + 1

	record := messageRecord{
		ID:       uuid.NewString(),
		GroupID:  string(groupID),
		AuthorID: authorID,
		Text:     payload.Text,
		Data:     payload.Data,
		Seq:      seq,
		At:       nanos,
	}
	bytes, err := cbor.Marshal(record)
	if err != nil {
		return domain.Message{}, err
	}

	// The existence read races concurrent joins writing the group record;
	// a lost commit is retried, never surfaced as a storage failure.
	err = runUpdate(m.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(groupKey(groupID)); err != nil {
			return err
		}
		return txn.Set(messageKey(groupID, nanos, seq), bytes)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, fmt.Errorf("group %s: %w", groupID, apperrors.ErrNotFound)
	}
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}

	// The clock only advances once the write is durable, so a failed
	// append leaves no gap in the assigned order.
	c.lastNanos = nanos
	c.seq = seq

	message, err := toMessage(record)
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// ListForGroup retrieves one page of the group's log, newest first, using a
// reverse prefix scan. The padded timestamp in the key makes the scan
// chronological for free. The returned cursor resumes after the last key of
// the page; a nil cursor starts from the newest message.
func (m *MessageRepository) ListForGroup(groupID domain.GroupID, cursor *string) ([]domain.Message, *string, error) {
	exists, err := m.groupExists(groupID)
	if err != nil {
		return nil, nil, err
	}
	if !exists {
		return nil, nil, fmt.Errorf("group %s: %w", groupID, apperrors.ErrNotFound)
	}

	records, lastKey, err := m.scanGroup(groupID, cursor, m.limitMessages)
	if err != nil {
		return nil, nil, err
	}
	messages, err := toMessages(records)
	if err != nil {
		return nil, nil, err
	}
	return messages, lastKey, nil
}

// ListForGroups returns the union of the given groups' logs globally
// ordered by (timestamp, sequence), newest first. Unknown group
// identifiers contribute nothing; filtering to the caller's membership is
// the service layer's job.
func (m *MessageRepository) ListForGroups(groupIDs []domain.GroupID) ([]domain.Message, error) {
	var all []messageRecord
	for _, groupID := range groupIDs {
		records, _, err := m.scanGroup(groupID, nil, nil)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].At != all[j].At {
			return all[i].At > all[j].At
		}
		return all[i].Seq > all[j].Seq
	})
	if m.limitMessages != nil && len(all) > *m.limitMessages {
		all = all[:*m.limitMessages]
	}
	return toMessages(all)
}

func (m *MessageRepository) groupExists(groupID domain.GroupID) (bool, error) {
	err := m.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(groupKey(groupID))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// scanGroup walks the group's key range in reverse. With a cursor it seeks
// to the cursor position and skips the already-delivered entry; without
// one it seeks past the newest possible key.
func (m *MessageRepository) scanGroup(groupID domain.GroupID, cursor *string, limit *int) ([]messageRecord, *string, error) {
	var values [][]byte
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(groupID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			seekKey = append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		default:
			seekKey = append(append([]byte{}, prefix...), []byte(*cursor)...)
		}
		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if limit != nil && len(values) == *limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *limit))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefix):])
			if err := item.Value(func(value []byte) error {
				values = append(values, append([]byte{}, value...))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	records := make([]messageRecord, 0, len(values))
	for _, value := range values {
		var record messageRecord
		if err := cbor.Unmarshal(value, &record); err != nil {
			return nil, nil, err
		}
		records = append(records, record)
	}
	if lastKey == "" {
		return records, nil, nil
	}
	return records, &lastKey, nil
}

func toMessage(record messageRecord) (domain.Message, error) {
	parsedID, err := uuid.Parse(record.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:       parsedID,
		GroupID:  domain.GroupID(record.GroupID),
		AuthorID: record.AuthorID,
		Payload: domain.Payload{
			Text: record.Text,
			Data: record.Data,
		},
		Seq:       record.Seq,
		CreatedAt: time.Unix(0, record.At).UTC(),
	}, nil
}

func toMessages(records []messageRecord) ([]domain.Message, error) {
	var firstErr error
	messages := lo.FilterMap(records, func(record messageRecord, _ int) (domain.Message, bool) {
		message, err := toMessage(record)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return message, err == nil
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return messages, nil
}
