package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/lumen/internal/notes"
)

const maxRedirects = 5

var (
	mimeToExt = map[string]string{
		"image/png":     ".png",
		"image/jpeg":    ".jpg",
		"image/gif":     ".gif",
		"image/webp":    ".webp",
		"image/svg+xml": ".svg",
		"image/bmp":     ".bmp",
	}

	safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

	metadataIP = net.ParseIP("169.254.169.254")
)

type uploadResult struct {
	NoteID   string `json:"note_id"`
	ImageKey string `json:"image_key"`
	Message  string `json:"message"`
}

func (s *Server) uploadImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	noteID, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var (
		data        []byte
		contentType string
	)
	if strings.HasPrefix(rawURL, "data:") {
		data, contentType, err = decodeDataURI(rawURL)
	} else {
		data, contentType, err = s.fetchHTTP(ctx, rawURL)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if contentType == "" {
		contentType = sniff(data)
	}
	if contentType == "image/jpg" {
		contentType = "image/jpeg"
	}

	file := notes.ImageFile{
		Filename:    imageFilename(req.GetString("filename", ""), rawURL, contentType),
		ContentType: contentType,
		Data:        data,
	}
	if err := file.Validate(); err != nil {
		return errorResult(err)
	}
	if err := validateMagicBytes(data, contentType); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := s.api.UploadImage(ctx, noteID, file)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(uploadResult{NoteID: noteID, ImageKey: resp.ImageKey, Message: resp.Message})
}

// decodeDataURI parses a data:<mediatype>;base64,<data> URI.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, "", errors.New("invalid data URI: missing comma separator")
	}

	meta := rest[:commaIdx]
	encoded := rest[commaIdx+1:]

	if !strings.Contains(meta, ";base64") {
		return nil, "", errors.New("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	mediaType := strings.ToLower(strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0])
	return data, mediaType, nil
}

func newFetcher() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (max %d)", maxRedirects)
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}
}

// fetchHTTP downloads an image with SSRF guards. It reads at most one byte
// past the upload limit so oversize images are reported without buffering
// them whole.
func (s *Server) fetchHTTP(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported scheme: %s (only http/https/data)", parsed.Scheme)
	}
	if err := checkBlockedHost(parsed.Hostname()); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := s.fetcher.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, notes.MaxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body failed: %w", err)
	}

	ct, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return data, ct, nil
}

// checkBlockedHost rejects loopback and cloud metadata addresses.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ip = ips[0]
	}

	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	if ip.Equal(metadataIP) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}

// imageFilename picks the upload filename: the caller's, else the URL's last
// segment, else a UUID with an extension for contentType.
func imageFilename(given, rawURL, contentType string) string {
	if given != "" {
		return sanitizeFilename(given)
	}
	if !strings.HasPrefix(rawURL, "data:") {
		if parsed, err := url.Parse(rawURL); err == nil {
			base := path.Base(parsed.Path)
			if base != "" && base != "." && base != "/" && strings.Contains(base, ".") {
				return sanitizeFilename(base)
			}
		}
	}
	ext := mimeToExt[contentType]
	if ext == "" {
		ext = ".jpg"
	}
	return uuid.NewString() + ext
}

// sanitizeFilename strips path separators and unsafe characters.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = safeFilenameRe.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == "/" {
		name = uuid.NewString()
	}
	return name
}

func sniff(data []byte) string {
	ct, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return ct
}

// validateMagicBytes rejects content whose signature contradicts the declared
// image type: a different recognised image format, or a non-image format.
// Formats the sniffer does not know (AVIF, HEIC, TIFF) come back as
// application/octet-stream and are accepted.
func validateMagicBytes(data []byte, contentType string) error {
	if contentType == "image/svg+xml" {
		prefix := data
		if len(prefix) > 1024 {
			prefix = prefix[:1024]
		}
		if !bytes.Contains(prefix, []byte("<svg")) {
			return errors.New("content does not appear to be a valid SVG (missing <svg tag)")
		}
		return nil
	}

	switch detected := sniff(data); {
	case detected == contentType, detected == "application/octet-stream":
		return nil
	default:
		return fmt.Errorf("content does not match type %s (detected: %s)", contentType, detected)
	}
}
