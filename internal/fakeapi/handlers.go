package fakeapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/starford/lumen/internal/apperr"
	"github.com/starford/lumen/internal/notes"
)

const (
	maxJSONBytes   = 1 << 20
	maxUploadBytes = 32 << 20
	defaultExt     = "jpg"
)

// health handles GET /health.
func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, notes.HealthStatus{Status: "healthy", Service: "notes-api"})
}

// listNotes handles GET /notes.
func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) {
	all := s.store.List()
	out := make([]noteResponse, 0, len(all))
	for _, rec := range all {
		out = append(out, toResponse(rec, s.imageURLs(r, rec.Images)))
	}
	writeJSON(w, http.StatusOK, out)
}

// getNote handles GET /notes/{id}.
func (s *Server) getNote(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(rec, s.imageURLs(r, rec.Images)))
}

// createNote handles POST /notes.
func (s *Server) createNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid JSON body"))
		return
	}
	var missing []string
	if req.Title == nil {
		missing = append(missing, "title")
	}
	if req.Content == nil {
		missing = append(missing, "content")
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, missingFields(missing...))
		return
	}

	rec := s.store.Create(*req.Title, *req.Content)
	s.metrics.CounterNotesCreated.Inc()
	s.metrics.GaugeNotes.Set(float64(s.store.Len()))
	s.logger.Info("note created", slog.String("id", rec.ID))
	writeJSON(w, http.StatusOK, toResponse(rec, nil))
}

// updateNote handles PUT /notes/{id}. Like the real service it answers
// without signed image URLs.
func (s *Server) updateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	var req notes.NoteUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid JSON body"))
		return
	}
	rec, err := s.store.Update(chi.URLParam(r, "id"), req.Title, req.Content)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(rec, nil))
}

// deleteNote handles DELETE /notes/{id}. Blob failures are logged and do not
// keep the note alive.
func (s *Server) deleteNote(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Delete(chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if err := s.blobs.DeleteAll(rec.Images); err != nil {
		s.logger.Warn("failed to delete note images",
			slog.String("id", rec.ID),
			slog.String("error", err.Error()))
	}
	s.metrics.GaugeNotes.Set(float64(s.store.Len()))
	writeJSON(w, http.StatusOK, notes.MessageResponse{Message: "Note deleted successfully"})
}

// uploadImage handles POST /notes/{id}/images (multipart, field "file").
func (s *Server) uploadImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.Get(id); err != nil {
		s.writeStoreError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to upload image: "+err.Error()))
		return
	}

	key := imageKey(id, header.Filename)
	if err := s.blobs.Put(key, data); err != nil {
		s.logger.Error("blob write failed", slog.String("key", key), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to upload image: "+err.Error()))
		return
	}
	if err := s.store.AddImage(id, key); err != nil {
		// The note went away while the blob was written.
		_ = s.blobs.Delete(key)
		s.writeStoreError(w, err)
		return
	}
	s.metrics.CounterImagesUploaded.Inc()
	writeJSON(w, http.StatusOK, notes.ImageUploadResponse{
		Message:  "Image uploaded successfully",
		ImageKey: key,
	})
}

// deleteImage handles DELETE /notes/{id}/images/*. The key may arrive as one
// escaped segment or as a raw path.
func (s *Server) deleteImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	raw := chi.URLParam(r, "*")
	key, err := url.PathUnescape(raw)
	if err != nil {
		key = raw
	}
	if err := s.store.RemoveImage(id, key); err != nil {
		s.writeStoreError(w, err)
		return
	}
	if err := s.blobs.Delete(key); err != nil {
		s.logger.Warn("failed to delete image blob", slog.String("key", key), slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, notes.MessageResponse{Message: "Image deleted successfully"})
}

// serveFile handles GET /files/*.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	abs, err := s.blobs.Path(chi.URLParam(r, "*"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, statErr := os.Stat(abs); errors.Is(statErr, os.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("Note not found"))
	case errors.Is(err, errImageNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("Image not found"))
	default:
		s.logger.Error("store operation failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// imageURLs returns the download URL of every key, rooted at the configured
// public URL or, when unset, at the host the request came in on.
func (s *Server) imageURLs(r *http.Request, keys []string) []string {
	base := s.publicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	urls := make([]string, 0, len(keys))
	for _, k := range keys {
		urls = append(urls, base+"/files/"+k)
	}
	return urls
}

// imageKey builds notes/<id>/<uuid>.<ext>, taking ext from filename.
func imageKey(noteID, filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if ext == "" {
		ext = defaultExt
	}
	return "notes/" + noteID + "/" + uuid.NewString() + "." + ext
}
