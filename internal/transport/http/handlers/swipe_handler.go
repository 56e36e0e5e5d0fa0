package handlers

import (
	"errors"
	"net/http"
	"strings"

	authsvc "github.com/kikipou/Loopi-App/internal/services/auth"
	ratesvc "github.com/kikipou/Loopi-App/internal/services/rate"
	swipersvc "github.com/kikipou/Loopi-App/internal/services/swiper"
	"github.com/kikipou/Loopi-App/internal/transport/http/dto"
	httperrors "github.com/kikipou/Loopi-App/internal/transport/http/errors"
)

type SwipeHandler struct {
	service *swipersvc.Service
	limiter *ratesvc.Limiter
}

func NewSwipeHandler(service *swipersvc.Service, limiter *ratesvc.Limiter) *SwipeHandler {
	return &SwipeHandler{service: service, limiter: limiter}
}

// Queue loads a fresh candidate queue for the caller.
func (h *SwipeHandler) Queue(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	count, err := h.service.Refresh(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load swipe queue")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SwipeQueueResponse{Count: count})
}

func (h *SwipeHandler) Current(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	card, ok := h.service.Current(r.Context(), identity.UserID)
	if !ok {
		httperrors.Write(w, http.StatusOK, dto.SwipeCurrentResponse{Exhausted: true})
		return
	}

	resp := toCardResponse(card)
	httperrors.Write(w, http.StatusOK, dto.SwipeCurrentResponse{Card: &resp})
}

func (h *SwipeHandler) Decide(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	var req dto.SwipeDecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	var direction swipersvc.Direction
	switch strings.ToLower(strings.TrimSpace(req.Direction)) {
	case "skip":
		direction = swipersvc.Skip
	case "like":
		direction = swipersvc.Like
	default:
		writeBadRequest(w, "VALIDATION_ERROR", "direction must be skip or like")
		return
	}

	if direction == swipersvc.Like && h.limiter != nil {
		retryAfter, allowed, err := h.limiter.AllowLike(r.Context(), identity.UserID)
		if err != nil {
			writeInternal(w, "INTERNAL_ERROR", "failed to check like budget")
			return
		}
		if !allowed {
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
				Code:          "TOO_FAST",
				Message:       "too many like actions, slow down",
				RetryAfterSec: retryAfter,
			})
			return
		}
	}

	outcome, err := h.service.Decide(r.Context(), identity.UserID, direction)
	if err != nil {
		handleSwipeError(w, err)
		return
	}

	resp := dto.SwipeOutcomeResponse{
		OK:        true,
		LikeSaved: outcome.LikeSaved,
		Exhausted: outcome.Exhausted,
	}
	if outcome.Match != nil {
		resp.Match = &dto.MatchResponse{
			ID:         outcome.Match.ID,
			ProjectID:  outcome.Match.ProjectID,
			WithUserID: outcome.Match.WithUserID,
		}
	}
	if !outcome.Exhausted {
		if card, ok := h.service.Current(r.Context(), identity.UserID); ok {
			next := toCardResponse(card)
			resp.Next = &next
		}
	}

	httperrors.Write(w, http.StatusOK, resp)
}

func handleSwipeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, swipersvc.ErrBusy):
		httperrors.Write(w, http.StatusConflict, httperrors.APIError{
			Code:    "DECISION_IN_FLIGHT",
			Message: "previous decision is still being processed",
		})
	case errors.Is(err, swipersvc.ErrExhausted):
		httperrors.Write(w, http.StatusConflict, httperrors.APIError{
			Code:    "QUEUE_EXHAUSTED",
			Message: "all cards reviewed, load a new queue",
		})
	case errors.Is(err, swipersvc.ErrSelfMatch):
		writeBadRequest(w, "SELF_MATCH_FORBIDDEN", "cannot like your own project")
	case errors.Is(err, swipersvc.ErrNotAuthenticated):
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process decision")
	}
}

func toCardResponse(card swipersvc.Card) dto.SwipeCardResponse {
	return dto.SwipeCardResponse{
		ID:          card.ID,
		Name:        card.Name,
		Description: card.Description,
		Professions: card.Professions,
		Skills:      card.Skills,
		ImageURL:    card.ImageURL,
		OwnerID:     card.OwnerID,
	}
}
