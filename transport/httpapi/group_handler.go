package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"group-chat/auth"
	"group-chat/domain"
	apperrors "group-chat/errors"
	"group-chat/repositories"
	"group-chat/services"
)

type GroupHandler struct {
	membership services.IMembershipService
	profiles   repositories.IProfileRepository
	validate   *validator.Validate
	log        *slog.Logger
}

func NewGroupHandler(
	membership services.IMembershipService,
	profiles repositories.IProfileRepository,
	validate *validator.Validate,
	log *slog.Logger,
) *GroupHandler {
	return &GroupHandler{membership: membership, profiles: profiles, validate: validate, log: log}
}

type createGroupRequest struct {
	Name string `json:"name" validate:"required,min=1,max=128"`
}

type groupResponse struct {
	GroupID string `json:"groupId"`
	Name    string `json:"name"`
}

type memberResponse struct {
	UserID string `json:"userId"`
	Photo  string `json:"photo,omitempty"`
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.log, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		return
	}

	group, err := h.membership.CreateGroup(r.Context(), req.Name)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, groupResponse{GroupID: string(group.ID), Name: group.Name})
}

func (h *GroupHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	groupID := domain.GroupID(chi.URLParam(r, "groupID"))

	if err := h.membership.JoinGroup(r.Context(), groupID, userID); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groupId": string(groupID), "joined": true})
}

// ListMine returns every group the caller belongs to. Order is stable
// across repeated calls absent mutation.
func (h *GroupHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	groups, err := h.membership.ListGroupsFor(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	response := lo.Map(groups, func(g domain.Group, _ int) groupResponse {
		return groupResponse{GroupID: string(g.ID), Name: g.Name}
	})
	writeJSON(w, http.StatusOK, map[string]any{"groups": response})
}

// ListMembers returns the member identities of a group, each enriched with
// the profile photo reference when one exists. Profiles are a collaborator
// concern: a missing profile only means no photo.
func (h *GroupHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	groupID := domain.GroupID(chi.URLParam(r, "groupID"))

	members, err := h.membership.ListMembers(r.Context(), groupID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	response := make([]memberResponse, 0, len(members))
	for _, userID := range members {
		member := memberResponse{UserID: userID}
		profile, err := h.profiles.Get(userID)
		switch {
		case err == nil:
			if profile.PhotoPath != "" {
				member.Photo = "/uploads/" + path.Base(profile.PhotoPath)
			}
		case !errors.Is(err, apperrors.ErrNotFound):
			writeError(w, h.log, err)
			return
		}
		response = append(response, member)
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": response})
}
