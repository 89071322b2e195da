package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	apperrors "group-chat/errors"
	"group-chat/services"
)

type AuthHandler struct {
	auth     services.IAuthService
	validate *validator.Validate
	log      *slog.Logger
}

func NewAuthHandler(auth services.IAuthService, validate *validator.Validate, log *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, validate: validate, log: log}
}

type signupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.log, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		return
	}

	token, user, err := h.auth.Signup(req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.log, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		return
	}

	token, user, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
	})
}
