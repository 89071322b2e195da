package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	apperrors "group-chat/errors"
)

type IUserRepository interface {
	CreateUser(username, email, passwordHash string) (User, error)
	GetUserByEmail(email string) (User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) UserRepository {
	return UserRepository{db: db}
}

// User is the repository-level representation of an account. The core only
// ever sees the opaque ID; credentials stay on this side of the boundary.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type userRecord struct {
	ID           string `cbor:"id"`
	Username     string `cbor:"username"`
	Email        string `cbor:"email"`
	PasswordHash string `cbor:"password_hash"`
	CreatedAt    int64  `cbor:"created_at"`
}

func userKey(email string) []byte {
	return []byte("user:" + email)
}

// CreateUser persists a new account keyed by email. Email uniqueness is
// enforced inside the transaction.
func (u UserRepository) CreateUser(username, email, passwordHash string) (User, error) {
	record := userRecord{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().UnixNano(),
	}
	bytes, err := cbor.Marshal(record)
	if err != nil {
		return User{}, fmt.Errorf("marshal failed: %w", err)
	}
	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(email)); err == nil {
			return apperrors.ErrUserAlreadyExists
		}
		return txn.Set(userKey(email), bytes)
	})
	if err != nil {
		return User{}, err
	}
	return toUser(record), nil
}

func (u UserRepository) GetUserByEmail(email string) (User, error) {
	var record userRecord
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(email))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return cbor.Unmarshal(value, &record)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return User{}, apperrors.ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return toUser(record), nil
}

func toUser(record userRecord) User {
	return User{
		ID:           record.ID,
		Username:     record.Username,
		Email:        record.Email,
		PasswordHash: record.PasswordHash,
		CreatedAt:    time.Unix(0, record.CreatedAt).UTC(),
	}
}
