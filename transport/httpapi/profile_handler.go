package httpapi

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"group-chat/auth"
	apperrors "group-chat/errors"
	"group-chat/repositories"
)

const maxPhotoBytes = 5 << 20

type ProfileHandler struct {
	profiles   repositories.IProfileRepository
	uploadsDir string
	log        *slog.Logger
}

func NewProfileHandler(profiles repositories.IProfileRepository, uploadsDir string, log *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, uploadsDir: uploadsDir, log: log}
}

type profileResponse struct {
	Photo  string `json:"photo,omitempty"`
	Age    int    `json:"age"`
	Weight int    `json:"weight"`
	Height int    `json:"height"`
}

// Create stores the caller's profile sheet. The photo is optional; when
// present its content type is sniffed, never trusted from the request.
func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		writeError(w, h.log, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		return
	}

	age, weight, height, err := parseProfileFields(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	photoPath, err := h.savePhoto(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	profile := repositories.Profile{
		UserID:    userID,
		PhotoPath: photoPath,
		Age:       age,
		Weight:    weight,
		Height:    height,
	}
	if err := h.profiles.Store(profile); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProfileResponse(profile))
}

func (h *ProfileHandler) View(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	profile, err := h.profiles.Get(userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

func toProfileResponse(profile repositories.Profile) profileResponse {
	response := profileResponse{
		Age:    profile.Age,
		Weight: profile.Weight,
		Height: profile.Height,
	}
	if profile.PhotoPath != "" {
		response.Photo = "/uploads/" + path.Base(profile.PhotoPath)
	}
	return response
}

func parseProfileFields(r *http.Request) (int, int, int, error) {
	parse := func(field string) (int, error) {
		value, err := strconv.Atoi(r.FormValue(field))
		if err != nil || value <= 0 {
			return 0, fmt.Errorf("%w: %s must be a positive number", apperrors.ErrValidation, field)
		}
		return value, nil
	}
	age, err := parse("age")
	if err != nil {
		return 0, 0, 0, err
	}
	weight, err := parse("weight")
	if err != nil {
		return 0, 0, 0, err
	}
	height, err := parse("height")
	if err != nil {
		return 0, 0, 0, err
	}
	return age, weight, height, nil
}

// savePhoto writes the uploaded photo under the uploads dir with a fresh
// name and the extension matching its sniffed type. Returns "" when no
// photo was sent.
func (h *ProfileHandler) savePhoto(r *http.Request) (string, error) {
	file, _, err := r.FormFile("photo")
	if err == http.ErrMissingFile {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes))
	if err != nil {
		return "", err
	}

	detected := mimetype.Detect(content)
	if !strings.HasPrefix(detected.String(), "image/") {
		return "", fmt.Errorf("%w: photo must be an image, got %s", apperrors.ErrValidation, detected.String())
	}

	name := uuid.NewString() + detected.Extension()
	fullPath := filepath.Join(h.uploadsDir, name)
	if err := os.WriteFile(fullPath, content, 0o644); err != nil {
		return "", err
	}
	return fullPath, nil
}
