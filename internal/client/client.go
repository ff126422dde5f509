// Package client is an HTTP client for the notes REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/starford/lumen/internal/apperr"
	"github.com/starford/lumen/internal/notes"
)

const defaultTimeout = 30 * time.Second

var _ notes.API = (*Client)(nil)

// Client talks to the notes API. It keeps no state between calls.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	userAgent  string
}

// New creates a client for the API rooted at baseURL (e.g. http://localhost:8000).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("client: base url must be http or https: %q", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("client: base url has no host: %q", baseURL)
	}

	c := &Client{
		baseURL:   strings.TrimSuffix(u.String(), "/"),
		timeout:   defaultTimeout,
		logger:    slog.Default(),
		userAgent: "lumen",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListNotes fetches every note in server order.
func (c *Client) ListNotes(ctx context.Context) ([]notes.Note, error) {
	var out []notes.Note
	if err := c.doJSON(ctx, http.MethodGet, "/notes", nil, &out); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	if out == nil {
		out = []notes.Note{}
	}
	return out, nil
}

// GetNote fetches one note. A missing note yields an error matching apperr.ErrNotFound.
func (c *Client) GetNote(ctx context.Context, id string) (*notes.Note, error) {
	var out notes.Note
	if err := c.doJSON(ctx, http.MethodGet, notePath(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get note %s: %w", id, err)
	}
	return &out, nil
}

// CreateNote creates a note. Blank titles are rejected before any request.
func (c *Client) CreateNote(ctx context.Context, in notes.NoteCreate) (*notes.Note, error) {
	if err := notes.ValidateTitle(in.Title); err != nil {
		return nil, err
	}
	var out notes.Note
	if err := c.doJSON(ctx, http.MethodPost, "/notes", in, &out); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return &out, nil
}

// UpdateNote applies a partial update.
func (c *Client) UpdateNote(ctx context.Context, id string, in notes.NoteUpdate) (*notes.Note, error) {
	if in.Title != nil {
		if err := notes.ValidateTitle(*in.Title); err != nil {
			return nil, err
		}
	}
	var out notes.Note
	if err := c.doJSON(ctx, http.MethodPut, notePath(id), in, &out); err != nil {
		return nil, fmt.Errorf("update note %s: %w", id, err)
	}
	return &out, nil
}

// DeleteNote deletes a note. The server removes its images too.
func (c *Client) DeleteNote(ctx context.Context, id string) (*notes.MessageResponse, error) {
	var out notes.MessageResponse
	if err := c.doJSON(ctx, http.MethodDelete, notePath(id), nil, &out); err != nil {
		return nil, fmt.Errorf("delete note %s: %w", id, err)
	}
	return &out, nil
}

// UploadImage attaches an image to a note as multipart field "file".
// Non-image types and files over notes.MaxImageBytes never reach the network.
func (c *Client) UploadImage(ctx context.Context, noteID string, file notes.ImageFile) (*notes.ImageUploadResponse, error) {
	if err := file.Validate(); err != nil {
		return nil, err
	}

	body, contentType, err := multipartBody(file)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	var out notes.ImageUploadResponse
	if err := c.do(ctx, http.MethodPost, notePath(noteID)+"/images", body, contentType, &out); err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	return &out, nil
}

// DeleteImage removes one image. The key is sent as a single escaped path
// segment, so "notes/x/y.jpg" travels as "notes%2Fx%2Fy.jpg".
func (c *Client) DeleteImage(ctx context.Context, noteID, imageKey string) (*notes.MessageResponse, error) {
	var out notes.MessageResponse
	path := notePath(noteID) + "/images/" + url.PathEscape(imageKey)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return nil, fmt.Errorf("delete image: %w", err)
	}
	return &out, nil
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*notes.HealthStatus, error) {
	var out notes.HealthStatus
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, fmt.Errorf("health: %w", err)
	}
	return &out, nil
}

func notePath(id string) string {
	return "/notes/" + url.PathEscape(id)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	if in == nil {
		return c.do(ctx, method, path, nil, "", out)
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, method, path, bytes.NewReader(payload), "application/json", out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	// url.Parse keeps escaped separators in RawPath, so %2F survives.
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("build url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("notes api request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("notes api request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, respBytes)
	}
	if out == nil || len(respBytes) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBytes, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorPayload covers FastAPI's {"detail": ...} and the {"error": ...} shape.
type errorPayload struct {
	Detail json.RawMessage `json:"detail"`
	Error  string          `json:"error"`
}

func decodeError(status int, body []byte) error {
	var p errorPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return apperr.NewAPIError(status, "")
	}
	if msg := detailMessage(p.Detail); msg != "" {
		return apperr.NewAPIError(status, msg)
	}
	return apperr.NewAPIError(status, p.Error)
}

// detailMessage flattens a FastAPI detail: either a string or a list of
// validation errors carrying "msg".
func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return ""
	}
	msgs := make([]string, 0, len(items))
	for _, it := range items {
		if it.Msg != "" {
			msgs = append(msgs, it.Msg)
		}
	}
	return strings.Join(msgs, "; ")
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func multipartBody(file notes.ImageFile) (io.Reader, string, error) {
	filename := file.Filename
	if filename == "" {
		filename = "image"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
	h.Set("Content-Type", file.ContentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", fmt.Errorf("write multipart part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
