package fakeapi

import (
	"errors"

	"github.com/starford/lumen/internal/notes"
)

var errImageNotFound = errors.New("image not found")

// noteResponse is a note on the wire. Timestamps are naive UTC strings.
type noteResponse struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
	Images    []string `json:"images"`
	ImageURLs []string `json:"image_urls"`
}

// createRequest uses pointers so absent fields can be told from empty ones.
type createRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

func toResponse(r record, urls []string) noteResponse {
	images := r.Images
	if images == nil {
		images = []string{}
	}
	if urls == nil {
		urls = []string{}
	}
	return noteResponse{
		ID:        r.ID,
		Title:     r.Title,
		Content:   r.Content,
		CreatedAt: notes.NewTimestamp(r.CreatedAt).NaiveString(),
		UpdatedAt: notes.NewTimestamp(r.UpdatedAt).NaiveString(),
		Images:    images,
		ImageURLs: urls,
	}
}
