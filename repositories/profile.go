package repositories

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"

	apperrors "group-chat/errors"
)

type IProfileRepository interface {
	Store(profile Profile) error
	Get(userID string) (Profile, error)
}

// ProfileRepository stores the per-user profile sheet. Profiles live
// outside the messaging core; the core only ever borrows the photo
// reference when listing group members.
type ProfileRepository struct {
	db *badger.DB
}

func NewProfileRepository(db *badger.DB) ProfileRepository {
	return ProfileRepository{db: db}
}

type Profile struct {
	UserID    string
	PhotoPath string
	Age       int
	Weight    int
	Height    int
	UpdatedAt time.Time
}

type profileRecord struct {
	UserID    string `cbor:"user_id"`
	PhotoPath string `cbor:"photo_path"`
	Age       int    `cbor:"age"`
	Weight    int    `cbor:"weight"`
	Height    int    `cbor:"height"`
	UpdatedAt int64  `cbor:"updated_at"`
}

func profileKey(userID string) []byte {
	return []byte("profile:" + userID)
}

func (p ProfileRepository) Store(profile Profile) error {
	record := profileRecord{
		UserID:    profile.UserID,
		PhotoPath: profile.PhotoPath,
		Age:       profile.Age,
		Weight:    profile.Weight,
		Height:    profile.Height,
		UpdatedAt: time.Now().UTC().UnixNano(),
	}
	bytes, err := cbor.Marshal(record)
	if err != nil {
		return err
	}
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(profileKey(profile.UserID), bytes)
	})
}

func (p ProfileRepository) Get(userID string) (Profile, error) {
	var record profileRecord
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(profileKey(userID))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return cbor.Unmarshal(value, &record)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Profile{}, apperrors.ErrNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	return Profile{
		UserID:    record.UserID,
		PhotoPath: record.PhotoPath,
		Age:       record.Age,
		Weight:    record.Weight,
		Height:    record.Height,
		UpdatedAt: time.Unix(0, record.UpdatedAt).UTC(),
	}, nil
}
