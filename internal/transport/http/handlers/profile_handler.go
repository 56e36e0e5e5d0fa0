package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/kikipou/Loopi-App/internal/services/auth"
	profilessvc "github.com/kikipou/Loopi-App/internal/services/profiles"
	"github.com/kikipou/Loopi-App/internal/transport/http/dto"
	httperrors "github.com/kikipou/Loopi-App/internal/transport/http/errors"
)

type ProfileHandler struct {
	service *profilessvc.Service
}

func NewProfileHandler(service *profilessvc.Service) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// Me serves the signed-in user's own profile, email included.
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PROFILES_SERVICE_UNAVAILABLE", "profiles service is unavailable")
		return
	}

	profile, err := h.service.Me(r.Context(), identity.UserID)
	if err != nil {
		handleProfilesError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, toProfileResponse(profile))
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PROFILES_SERVICE_UNAVAILABLE", "profiles service is unavailable")
		return
	}

	var req dto.UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	profile, err := h.service.Update(r.Context(), identity.UserID, profilessvc.UpdateInput{
		Username:  req.Username,
		FullName:  req.FullName,
		AvatarKey: req.AvatarKey,
	})
	if err != nil {
		handleProfilesError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, toProfileResponse(profile))
}

// Public serves another user's profile without the private fields.
func (h *ProfileHandler) Public(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PROFILES_SERVICE_UNAVAILABLE", "profiles service is unavailable")
		return
	}

	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}

	public, err := h.service.Public(r.Context(), userID)
	if err != nil {
		handleProfilesError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PublicProfileResponse{
		ID:        public.ID,
		Username:  public.Username,
		FullName:  public.FullName,
		AvatarURL: public.AvatarURL,
	})
}

func handleProfilesError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, profilessvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid profile payload")
	case errors.Is(err, profilessvc.ErrNotFound):
		writeNotFound(w, "PROFILE_NOT_FOUND", "profile not found")
	case errors.Is(err, profilessvc.ErrUsernameTaken):
		httperrors.Write(w, http.StatusConflict, httperrors.APIError{
			Code:    "USERNAME_TAKEN",
			Message: "username already taken",
		})
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process profile request")
	}
}

func toProfileResponse(profile profilessvc.Profile) dto.ProfileResponse {
	return dto.ProfileResponse{
		ID:        profile.ID,
		Email:     profile.Email,
		Username:  profile.Username,
		FullName:  profile.FullName,
		AvatarURL: profile.AvatarURL,
		CreatedAt: profile.CreatedAt,
	}
}
