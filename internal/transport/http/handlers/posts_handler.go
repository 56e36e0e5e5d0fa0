package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/kikipou/Loopi-App/internal/services/auth"
	postssvc "github.com/kikipou/Loopi-App/internal/services/posts"
	"github.com/kikipou/Loopi-App/internal/transport/http/dto"
	httperrors "github.com/kikipou/Loopi-App/internal/transport/http/errors"
)

type PostsHandler struct {
	service *postssvc.Service
}

func NewPostsHandler(service *postssvc.Service) *PostsHandler {
	return &PostsHandler{service: service}
}

func (h *PostsHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "POSTS_SERVICE_UNAVAILABLE", "posts service is unavailable")
		return
	}

	var req dto.CreatePostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	post, err := h.service.Create(r.Context(), identity.UserID, postssvc.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Professions: req.Professions,
		Skills:      req.Skills,
		Categories:  req.Categories,
		ImageKey:    req.ImageKey,
	})
	if err != nil {
		handlePostsError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, toPostResponse(post))
}

func (h *PostsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "POSTS_SERVICE_UNAVAILABLE", "posts service is unavailable")
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid post id")
		return
	}

	post, err := h.service.Get(r.Context(), id)
	if err != nil {
		handlePostsError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, toPostResponse(post))
}

// List serves the feed; an optional q parameter switches to search.
func (h *PostsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "POSTS_SERVICE_UNAVAILABLE", "posts service is unavailable")
		return
	}

	query := r.URL.Query().Get("q")

	var (
		posts []postssvc.Post
		err   error
	)
	if query != "" {
		posts, err = h.service.Search(r.Context(), query)
	} else {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		posts, err = h.service.ListRecent(r.Context(), limit, offset)
	}
	if err != nil {
		handlePostsError(w, err)
		return
	}

	out := make([]dto.PostResponse, 0, len(posts))
	for _, post := range posts {
		out = append(out, toPostResponse(post))
	}
	httperrors.Write(w, http.StatusOK, dto.PostListResponse{Posts: out})
}

func (h *PostsHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "POSTS_SERVICE_UNAVAILABLE", "posts service is unavailable")
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid post id")
		return
	}

	var req dto.UpdatePostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	post, err := h.service.Update(r.Context(), id, identity.UserID, postssvc.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Professions: req.Professions,
		Skills:      req.Skills,
		Categories:  req.Categories,
		ImageKey:    req.ImageKey,
	})
	if err != nil {
		handlePostsError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, toPostResponse(post))
}

func (h *PostsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "POSTS_SERVICE_UNAVAILABLE", "posts service is unavailable")
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid post id")
		return
	}

	if err := h.service.Delete(r.Context(), id, identity.UserID); err != nil {
		handlePostsError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.DeletePostResponse{OK: true})
}

func handlePostsError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, postssvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid post payload")
	case errors.Is(err, postssvc.ErrNotFound):
		writeNotFound(w, "POST_NOT_FOUND", "post not found")
	case errors.Is(err, postssvc.ErrForbidden):
		writeForbidden(w, "NOT_POST_OWNER", "only the owner can modify a post")
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process post request")
	}
}

func toPostResponse(post postssvc.Post) dto.PostResponse {
	return dto.PostResponse{
		ID:            post.ID,
		OwnerID:       post.OwnerID,
		OwnerUsername: post.OwnerUsername,
		Name:          post.Name,
		Description:   post.Description,
		Professions:   post.Professions,
		Skills:        post.Skills,
		Categories:    post.Categories,
		ImageURL:      post.ImageURL,
		CreatedAt:     post.CreatedAt,
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
