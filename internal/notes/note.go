// Package notes defines the note types exchanged with the notes API.
package notes

import (
	"slices"
	"strings"
)

// Note is a titled text document with attached images.
//
// Images and ImageURLs are positional: ImageURLs[i] is the signed URL of
// Images[i]. ImageURLs may be absent or shorter than Images.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
	Images    []string  `json:"images"`
	ImageURLs []string  `json:"image_urls,omitempty"`
}

// NoteCreate is the body of a create request.
type NoteCreate struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NoteUpdate is a partial update. Nil fields are left unchanged by the server.
type NoteUpdate struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// MessageResponse is returned by delete endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// ImageUploadResponse is returned by the image upload endpoint.
type ImageUploadResponse struct {
	Message  string `json:"message"`
	ImageKey string `json:"image_key"`
}

// HealthStatus is returned by GET /health.
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// ImageFile is an image picked for upload.
type ImageFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the image size in bytes.
func (f ImageFile) Size() int64 {
	return int64(len(f.Data))
}

// KeyPlaceholder is replaced by the image key in public URL templates.
const KeyPlaceholder = "{key}"

// PublicURL expands a public URL template for key. An empty template yields "".
func PublicURL(template, key string) string {
	if template == "" {
		return ""
	}
	if !strings.Contains(template, KeyPlaceholder) {
		return strings.TrimSuffix(template, "/") + "/" + key
	}
	return strings.ReplaceAll(template, KeyPlaceholder, key)
}

// DisplayURL returns the URL used to render image i: its signed URL when
// present, otherwise the public URL built from template.
func (n *Note) DisplayURL(i int, template string) string {
	if i < 0 || i >= len(n.Images) {
		return ""
	}
	if i < len(n.ImageURLs) && n.ImageURLs[i] != "" {
		return n.ImageURLs[i]
	}
	return PublicURL(template, n.Images[i])
}

// Clone returns a deep copy of n.
func (n Note) Clone() Note {
	n.Images = slices.Clone(n.Images)
	n.ImageURLs = slices.Clone(n.ImageURLs)
	return n
}

// SortByUpdatedDesc orders notes newest first. Ties keep their relative order.
func SortByUpdatedDesc(list []Note) {
	slices.SortStableFunc(list, func(a, b Note) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
}
