package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"group-chat/domain"
	apperrors "group-chat/errors"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Append_Assigns_Monotonic_Order(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	groups := NewGroupRepository(db, slog.Default())
	repository := NewMessageRepository(db, slog.Default(), nil)

	group, err := groups.Create("Runners")
	req.NoError(err)

	m1, err := repository.Append(group.ID, "alice", domain.Payload{Text: "first"})
	req.NoError(err)
	m2, err := repository.Append(group.ID, "bob", domain.Payload{Text: "second"})
	req.NoError(err)

	// Store-assigned timestamps are strictly increasing per group.
	req.True(m2.CreatedAt.After(m1.CreatedAt))
	req.Greater(m2.Seq, m1.Seq)
	req.Equal(group.ID, m1.GroupID)
	req.Equal("alice", m1.AuthorID)
}

func Test_Append_Unknown_Group_Stores_Nothing(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default(), nil)

	_, err := repository.Append(domain.GroupID("missing"), "alice", domain.Payload{Text: "hi"})
	req.ErrorIs(err, apperrors.ErrNotFound)

	messages, err := repository.ListForGroups([]domain.GroupID{"missing"})
	req.NoError(err)
	req.Empty(messages)
}

func Test_Append_Races_Concurrent_Joins(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	groups := NewGroupRepository(db, slog.Default())
	repository := NewMessageRepository(db, slog.Default(), nil)

	group, err := groups.Create("Runners")
	req.NoError(err)
	_, err = groups.AddMember(group.ID, "alice")
	req.NoError(err)

	// Joins rewrite the group record while appends read it for the
	// existence check; neither side may fail because of the other.
	const rounds = 10
	errs := make(chan error, rounds*2)
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_, err := groups.AddMember(group.ID, fmt.Sprintf("user-%02d", n))
			errs <- err
		}(i)
		go func(n int) {
			defer wg.Done()
			_, err := repository.Append(group.ID, "alice",
				domain.Payload{Text: fmt.Sprintf("message %d", n)})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		req.NoError(err)
	}
	stored, err := repository.ListForGroups([]domain.GroupID{group.ID})
	req.NoError(err)
	req.Len(stored, rounds)
}

func Test_ListForGroup_Newest_First(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	groups := NewGroupRepository(db, slog.Default())
	repository := NewMessageRepository(db, slog.Default(), nil)

	group, err := groups.Create("Runners")
	req.NoError(err)

	for _, text := range []string{"one", "two", "three"} {
		_, err := repository.Append(group.ID, "alice", domain.Payload{Text: text})
		req.NoError(err)
	}

	fetched, _, err := repository.ListForGroup(group.ID, nil)
	req.NoError(err)
	req.Len(fetched, 3)
	req.Equal("three", fetched[0].Payload.Text)
	req.Equal("two", fetched[1].Payload.Text)
	req.Equal("one", fetched[2].Payload.Text)
}

func Test_ListForGroup_Unknown_Group(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default(), nil)

	_, _, err := repository.ListForGroup(domain.GroupID("missing"), nil)
	req.True(errors.Is(err, apperrors.ErrNotFound))
}

func Test_ListForGroup_Cursor_Pagination(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	groups := NewGroupRepository(db, slog.Default())
	limit := 2
	repository := NewMessageRepository(db, slog.Default(), &limit)

	group, err := groups.Create("Runners")
	req.NoError(err)

	for _, text := range []string{"one", "two", "three"} {
		_, err := repository.Append(group.ID, "alice", domain.Payload{Text: text})
		req.NoError(err)
	}

	// First page: the two newest messages.
	page1, cursor, err := repository.ListForGroup(group.ID, nil)
	req.NoError(err)
	req.Len(page1, 2)
	req.Equal("three", page1[0].Payload.Text)
	req.Equal("two", page1[1].Payload.Text)
	req.NotNil(cursor)

	// Second page resumes after the cursor.
	page2, _, err := repository.ListForGroup(group.ID, cursor)
	req.NoError(err)
	req.Len(page2, 1)
	req.Equal("one", page2[0].Payload.Text)
}

func Test_ListForGroups_Merges_Globally_Newest_First(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	groups := NewGroupRepository(db, slog.Default())
	repository := NewMessageRepository(db, slog.Default(), nil)

	runners, err := groups.Create("Runners")
	req.NoError(err)
	hikers, err := groups.Create("Hikers")
	req.NoError(err)

	_, err = repository.Append(runners.ID, "alice", domain.Payload{Text: "run-1"})
	req.NoError(err)
	_, err = repository.Append(hikers.ID, "bob", domain.Payload{Text: "hike-1"})
	req.NoError(err)
	_, err = repository.Append(runners.ID, "alice", domain.Payload{Text: "run-2"})
	req.NoError(err)

	merged, err := repository.ListForGroups([]domain.GroupID{runners.ID, hikers.ID})
	req.NoError(err)
	req.Len(merged, 3)
	req.Equal("run-2", merged[0].Payload.Text)
	req.Equal("hike-1", merged[1].Payload.Text)
	req.Equal("run-1", merged[2].Payload.Text)

	// A group identifier outside the list contributes nothing.
	onlyHikers, err := repository.ListForGroups([]domain.GroupID{hikers.ID})
	req.NoError(err)
	req.Len(onlyHikers, 1)
}

func Test_Structured_Payload_Roundtrip(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	groups := NewGroupRepository(db, slog.Default())
	repository := NewMessageRepository(db, slog.Default(), nil)

	group, err := groups.Create("Runners")
	req.NoError(err)

	data := json.RawMessage(`{"kind":"poll","options":["5k","10k"]}`)
	stored, err := repository.Append(group.ID, "alice", domain.Payload{Data: data})
	req.NoError(err)

	fetched, _, err := repository.ListForGroup(group.ID, nil)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal(stored.ID, fetched[0].ID)
	req.JSONEq(string(data), string(fetched[0].Payload.Data))
}
