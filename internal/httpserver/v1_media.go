package httpserver

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"friendsnet-backend/internal/storage"
)

const maxUploadBytes = 50 << 20 // 50 MiB

type createMediaRequest struct {
	Type        int64   `json:"type"`
	URL         string  `json:"url"`
	Description *string `json:"description,omitempty"`
}

func (api *v1API) handleMedia(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
		return
	}

	if _, ok := requireUser(w, r); !ok {
		return
	}

	var req createMediaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIError(w, ErrCodeValidation, "invalid JSON body")
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeAPIError(w, ErrCodeValidation, "url is required")
		return
	}

	mediaID, err := api.store.CreateMedia(r.Context(), req.Type, req.URL, req.Description)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "media item")
		return
	}

	item, err := api.store.GetMediaItem(r.Context(), mediaID)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "media item")
		return
	}
	writeJSON(w, http.StatusOK, map[string]mediaItem{"media": toMediaItem(item)})
}

type updateMediaRequest struct {
	Description jsonOptional[*string] `json:"description"`
}

func (api *v1API) handleMediaSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/media/")
	parts := splitPath(rest)
	if len(parts) != 1 {
		writeAPIError(w, ErrCodeNotFound, "not found")
		return
	}

	mediaID, ok := parseID(parts[0])
	if !ok {
		writeAPIError(w, ErrCodeValidation, "invalid media id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		item, err := api.store.GetMediaItem(r.Context(), mediaID)
		if err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "media item")
			return
		}
		writeJSON(w, http.StatusOK, map[string]mediaItem{"media": toMediaItem(item)})

	case http.MethodPut:
		if _, ok := requireUser(w, r); !ok {
			return
		}
		var req updateMediaRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAPIError(w, ErrCodeValidation, "invalid JSON body")
			return
		}
		if !req.Description.Set {
			writeAPIError(w, ErrCodeValidation, "description is required")
			return
		}

		if err := api.store.UpdateMediaDescription(r.Context(), mediaID, req.Description.Value); err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "media item")
			return
		}
		item, err := api.store.GetMediaItem(r.Context(), mediaID)
		if err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "media item")
			return
		}
		writeJSON(w, http.StatusOK, map[string]mediaItem{"media": toMediaItem(item)})

	case http.MethodDelete:
		if _, ok := requireUser(w, r); !ok {
			return
		}
		if err := api.store.DeleteMediaItem(r.Context(), mediaID); err != nil {
			api.writeStoreError(w, err, ErrCodeNotFound, "media item")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
	}
}

// handleUpload stores a multipart file under the upload directory and creates
// a media item pointing at its public URL.
func (api *v1API) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAPIError(w, ErrCodeMethodNotAllowed, "method not allowed")
		return
	}

	if _, ok := requireUser(w, r); !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeAPIError(w, ErrCodeValidation, "file too large")
			return
		}
		writeAPIError(w, ErrCodeValidation, "missing file field")
		return
	}
	defer file.Close()

	mediaType, ok := mediaTypeForFilename(header.Filename)
	if !ok {
		writeAPIError(w, ErrCodeValidation, "unsupported file type")
		return
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
	dst := filepath.Join(api.uploadDir, name)
	out, err := os.Create(dst)
	if err != nil {
		api.logger.Error("create upload file failed", "error", err)
		writeAPIError(w, ErrCodeInternal, "internal error")
		return
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(dst)
		api.logger.Error("write upload file failed", "error", err)
		writeAPIError(w, ErrCodeInternal, "internal error")
		return
	}

	url := path.Join("/uploads", name)
	mediaID, err := api.store.CreateMedia(r.Context(), mediaType, url, nil)
	if err != nil {
		os.Remove(dst)
		api.writeStoreError(w, err, ErrCodeNotFound, "media item")
		return
	}

	item, err := api.store.GetMediaItem(r.Context(), mediaID)
	if err != nil {
		api.writeStoreError(w, err, ErrCodeNotFound, "media item")
		return
	}
	writeJSON(w, http.StatusOK, map[string]mediaItem{"media": toMediaItem(item)})
}

func mediaTypeForFilename(name string) (int64, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return storage.MediaTypePhoto, true
	case ".mp4", ".webm", ".mov":
		return storage.MediaTypeVideo, true
	default:
		return 0, false
	}
}
