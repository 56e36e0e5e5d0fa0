package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/kikipou/Loopi-App/internal/services/auth"
	matchessvc "github.com/kikipou/Loopi-App/internal/services/matches"
	"github.com/kikipou/Loopi-App/internal/transport/http/dto"
	httperrors "github.com/kikipou/Loopi-App/internal/transport/http/errors"
)

type MatchesHandler struct {
	service *matchessvc.Service
}

func NewMatchesHandler(service *matchessvc.Service) *MatchesHandler {
	return &MatchesHandler{service: service}
}

func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCH_SERVICE_UNAVAILABLE", "match service is unavailable")
		return
	}

	matches, err := h.service.List(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to list matches")
		return
	}

	out := make([]dto.MatchListItem, 0, len(matches))
	for _, m := range matches {
		out = append(out, dto.MatchListItem{
			ID:           m.ID,
			ProjectID:    m.ProjectID,
			ProjectName:  m.ProjectName,
			WithUserID:   m.WithUserID,
			WithUsername: m.WithUsername,
			CreatedAt:    m.CreatedAt,
		})
	}
	httperrors.Write(w, http.StatusOK, dto.MatchListResponse{Matches: out})
}

func (h *MatchesHandler) Unmatch(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCH_SERVICE_UNAVAILABLE", "match service is unavailable")
		return
	}

	id, ok := pathID(r, "matchID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid match id")
		return
	}

	if err := h.service.Unmatch(r.Context(), id, identity.UserID); err != nil {
		handleMatchesError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.UnmatchResponse{OK: true})
}

func handleMatchesError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, matchessvc.ErrNotFound):
		writeNotFound(w, "MATCH_NOT_FOUND", "match not found")
	case errors.Is(err, matchessvc.ErrForbidden):
		writeForbidden(w, "NOT_MATCH_MEMBER", "only a match member can do this")
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process match request")
	}
}
