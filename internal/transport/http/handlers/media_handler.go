package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/kikipou/Loopi-App/internal/services/auth"
	mediasvc "github.com/kikipou/Loopi-App/internal/services/media"
	"github.com/kikipou/Loopi-App/internal/transport/http/dto"
	httperrors "github.com/kikipou/Loopi-App/internal/transport/http/errors"
)

const uploadMemoryLimit = 32 << 20

type MediaHandler struct {
	service *mediasvc.Service
}

func NewMediaHandler(service *mediasvc.Service) *MediaHandler {
	return &MediaHandler{service: service}
}

// UploadImage accepts a multipart form with one "image" part.
func (h *MediaHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "expected multipart form data")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "image file is required")
		return
	}
	defer func() { _ = file.Close() }()

	upload, err := h.service.UploadImage(
		r.Context(),
		identity.UserID,
		header.Filename,
		header.Header.Get("Content-Type"),
		file,
		header.Size,
	)
	if err != nil {
		handleMediaError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.UploadImageResponse{
		Key: upload.Key,
		URL: upload.URL,
	})
}

func handleMediaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mediasvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid upload")
	case errors.Is(err, mediasvc.ErrUnsupportedType):
		writeBadRequest(w, "UNSUPPORTED_MEDIA_TYPE", "only jpeg, png, webp and gif images are allowed")
	case errors.Is(err, mediasvc.ErrImageTooLarge):
		httperrors.Write(w, http.StatusRequestEntityTooLarge, httperrors.APIError{
			Code:    "IMAGE_TOO_LARGE",
			Message: "image exceeds the size limit",
		})
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to upload image")
	}
}
