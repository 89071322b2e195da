package services

import (
	"errors"
	"log/slog"

	"group-chat/auth"
	apperrors "group-chat/errors"
	"group-chat/repositories"
)

type IAuthService interface {
	Signup(username, email, password string) (string, repositories.User, error)
	Login(email, password string) (string, repositories.User, error)
}

// AuthService issues the authenticated identities every core operation
// consumes. Credentials never leave this service.
type AuthService struct {
	users  repositories.IUserRepository
	tokens *auth.TokenManager
	log    *slog.Logger
}

func NewAuthService(users repositories.IUserRepository, tokens *auth.TokenManager, log *slog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, log: log}
}

// Signup registers a new account and returns a freshly minted token, so a
// new user is immediately authenticated.
func (s *AuthService) Signup(username, email, password string) (string, repositories.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", repositories.User{}, err
	}
	user, err := s.users.CreateUser(username, email, hash)
	if err != nil {
		return "", repositories.User{}, err
	}
	token, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return "", repositories.User{}, err
	}
	s.log.Info("user registered", "user_id", user.ID)
	return token, user, nil
}

// Login verifies the credentials and mints a token. An unknown email and a
// wrong password are indistinguishable to the caller.
func (s *AuthService) Login(email, password string) (string, repositories.User, error) {
	user, err := s.users.GetUserByEmail(email)
	if errors.Is(err, apperrors.ErrNotFound) {
		return "", repositories.User{}, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return "", repositories.User{}, err
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil {
		return "", repositories.User{}, err
	}
	if !match {
		return "", repositories.User{}, apperrors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return "", repositories.User{}, err
	}
	return token, user, nil
}
