package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/starford/lumen/internal/apperr"
	"github.com/starford/lumen/internal/client"
	"github.com/starford/lumen/internal/notes"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newTestClient starts a server running handler and returns a client for it.
func newTestClient(t *testing.T, handler http.HandlerFunc) *client.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := client.New(srv.URL, client.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8000", "ftp://host", "http://"} {
		_, err := client.New(raw)
		assert.Error(t, err, raw)
	}

	c, err := client.New("http://localhost:8000/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", c.BaseURL())
}

func TestListNotes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/notes", r.URL.Path)
		_, _ = io.WriteString(w, `[
			{"id":"a","title":"A","content":"","created_at":"2024-01-01T00:00:00","updated_at":"2024-01-01T00:00:00","images":[]},
			{"id":"b","title":"B","content":"x","created_at":"2024-01-02T00:00:00","updated_at":"2024-01-03T00:00:00","images":["notes/b/1.png"],"image_urls":["https://s/1"]}
		]`)
	})

	list, err := c.ListNotes(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID, "server order is kept")
	assert.Equal(t, []string{"https://s/1"}, list[1].ImageURLs)
}

func TestListNotes_EmptyBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})
	list, err := c.ListNotes(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestGetNote_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/notes/missing", r.URL.Path)
		writeJSON(t, w, http.StatusNotFound, map[string]string{"detail": "Note not found"})
	})

	_, err := c.GetNote(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "Note not found", apperr.Message(err))

	var apiErr *apperr.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestCreateNote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in notes.NoteCreate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, notes.NoteCreate{Title: "Groceries", Content: "milk"}, in)

		writeJSON(t, w, http.StatusOK, notes.Note{ID: "n1", Title: in.Title, Content: in.Content, Images: []string{}})
	})

	n, err := c.CreateNote(context.Background(), notes.NoteCreate{Title: "Groceries", Content: "milk"})
	require.NoError(t, err)
	assert.Equal(t, "n1", n.ID)
	assert.Empty(t, n.Images)
}

func TestCreateNote_BlankTitleNeverSent(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := c.CreateNote(context.Background(), notes.NoteCreate{Title: "   "})
	assert.ErrorIs(t, err, apperr.ErrTitleRequired)
	assert.Zero(t, calls.Load())
}

func TestUpdateNote_PartialBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/notes/n1", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"content":"new body"}`, string(body))
		writeJSON(t, w, http.StatusOK, notes.Note{ID: "n1", Title: "Kept", Content: "new body"})
	})

	content := "new body"
	n, err := c.UpdateNote(context.Background(), "n1", notes.NoteUpdate{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, "Kept", n.Title)
}

func TestDeleteNote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		writeJSON(t, w, http.StatusOK, notes.MessageResponse{Message: "Note deleted successfully"})
	})

	resp, err := c.DeleteNote(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, "Note deleted successfully", resp.Message)
}

func TestUploadImage_Multipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/notes/n1/images", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)

		assert.Equal(t, "cat.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		assert.Equal(t, "PNGDATA", string(data))

		writeJSON(t, w, http.StatusOK, notes.ImageUploadResponse{Message: "Image uploaded successfully", ImageKey: "notes/n1/abc.png"})
	})

	resp, err := c.UploadImage(context.Background(), "n1", notes.ImageFile{
		Filename:    "cat.png",
		ContentType: "image/png",
		Data:        []byte("PNGDATA"),
	})
	require.NoError(t, err)
	assert.Equal(t, "notes/n1/abc.png", resp.ImageKey)
}

func TestUploadImage_PreconditionsNeverSend(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := c.UploadImage(context.Background(), "n1", notes.ImageFile{
		Filename: "big.jpg", ContentType: "image/jpeg", Data: make([]byte, notes.MaxImageBytes+1),
	})
	assert.ErrorIs(t, err, apperr.ErrImageTooLarge)

	_, err = c.UploadImage(context.Background(), "n1", notes.ImageFile{
		Filename: "doc.pdf", ContentType: "application/pdf", Data: []byte("%PDF"),
	})
	assert.ErrorIs(t, err, apperr.ErrNotImage)

	assert.Zero(t, calls.Load())
}

func TestDeleteImage_EscapesKeyAsOneSegment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/notes/n1/images/notes%2Fn1%2Fabc.jpg", r.URL.EscapedPath())
		writeJSON(t, w, http.StatusOK, notes.MessageResponse{Message: "Image deleted successfully"})
	})

	resp, err := c.DeleteImage(context.Background(), "n1", "notes/n1/abc.jpg")
	require.NoError(t, err)
	assert.Equal(t, "Image deleted successfully", resp.Message)
}

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail string", http.StatusBadRequest, `{"detail":"File must be an image"}`, "File must be an image"},
		{"detail list", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"},{"msg":"too short"}]}`, "field required; too short"},
		{"error field", http.StatusInternalServerError, `{"error":"internal error"}`, "internal error"},
		{"no body", http.StatusBadGateway, ``, "request failed with status code 502"},
		{"html body", http.StatusServiceUnavailable, `<html>down</html>`, "request failed with status code 503"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := c.Health(context.Background())
			require.Error(t, err)
			assert.Equal(t, tc.want, apperr.Message(err))
			assert.True(t, strings.HasPrefix(err.Error(), "health: "))
		})
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := client.New(url)
	require.NoError(t, err)

	_, err = c.ListNotes(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list notes: http client do")
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		writeJSON(t, w, http.StatusOK, notes.HealthStatus{Status: "healthy", Service: "notes-api"})
	})
	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
}
