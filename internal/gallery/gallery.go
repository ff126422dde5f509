// Package gallery manages the images attached to a single note.
//
// Every mutation is a two-step exchange: Start* validates and returns an Op
// that only performs I/O, and Apply folds the Op's Result back in. After
// each upload or delete the note is refetched and the image lists are
// replaced wholesale with the server's view.
package gallery

import (
	"context"
	"fmt"
	"slices"

	"github.com/starford/lumen/internal/apperr"
	"github.com/starford/lumen/internal/notes"
)

// Kind tells which action produced a Result.
type Kind int

const (
	KindUpload Kind = iota + 1
	KindDelete
)

// Result is the outcome of an Op.
type Result struct {
	Kind   Kind
	NoteID string
	Key    string // image removed, for KindDelete
	Note   *notes.Note
	Err    error
}

// Op performs the network side of an upload or delete.
type Op func(ctx context.Context) Result

// Gallery is not safe for concurrent use.
type Gallery struct {
	api      notes.API
	noteID   string
	template string

	images []string
	urls   []string

	uploading bool
	deleting  map[string]bool
	disabled  bool
	err       string
}

// New creates a gallery for noteID seeded with the note's current images.
// template builds display URLs for images without a signed URL.
func New(api notes.API, noteID string, images, urls []string, template string) *Gallery {
	g := &Gallery{api: api, noteID: noteID, template: template, deleting: map[string]bool{}}
	g.replace(images, urls)
	return g
}

// NoteID returns the note the gallery belongs to.
func (g *Gallery) NoteID() string { return g.noteID }

// Images returns the image keys in display order.
func (g *Gallery) Images() []string { return slices.Clone(g.images) }

// ImageURLs returns the signed URLs as last reported by the server.
func (g *Gallery) ImageURLs() []string { return slices.Clone(g.urls) }

// Count returns the number of attached images.
func (g *Gallery) Count() int { return len(g.images) }

// Uploading reports whether an upload is in flight.
func (g *Gallery) Uploading() bool { return g.uploading }

// Deleting reports whether a delete of key is in flight.
func (g *Gallery) Deleting(key string) bool { return g.deleting[key] }

// CanDelete reports whether the delete control is active: no other delete
// is in flight and the owner has not disabled the gallery.
func (g *Gallery) CanDelete() bool { return len(g.deleting) == 0 && !g.disabled }

// Err returns the message to show, or "".
func (g *Gallery) Err() string { return g.err }

// ClearErr dismisses the current error.
func (g *Gallery) ClearErr() { g.err = "" }

// Disabled reports whether uploads are switched off by the owner.
func (g *Gallery) Disabled() bool { return g.disabled }

// SetDisabled turns upload and delete controls off or on.
func (g *Gallery) SetDisabled(v bool) { g.disabled = v }

// CanUpload reports whether the upload control is active.
func (g *Gallery) CanUpload() bool { return !g.uploading && !g.disabled }

// UploadLabel is the caption of the upload control.
func (g *Gallery) UploadLabel() string {
	if g.uploading {
		return "Uploading..."
	}
	return "Upload Image"
}

// CountLabel renders the image badge, e.g. "1 image" or "3 images".
// It is empty when there are no images.
func (g *Gallery) CountLabel() string {
	return CountLabel(len(g.images))
}

// CountLabel renders n as "N image(s)", or "" for zero.
func CountLabel(n int) string {
	switch n {
	case 0:
		return ""
	case 1:
		return "1 image"
	default:
		return fmt.Sprintf("%d images", n)
	}
}

// DisplayURL returns the URL for image i: the signed URL when known,
// otherwise the public fallback.
func (g *Gallery) DisplayURL(i int) string {
	n := notes.Note{Images: g.images, ImageURLs: g.urls}
	return n.DisplayURL(i, g.template)
}

// StartUpload checks the file and, when it is acceptable, marks the gallery
// as uploading and returns the Op to run. Invalid files set the error and
// return no Op, so nothing is sent.
func (g *Gallery) StartUpload(file notes.ImageFile) (Op, error) {
	if !g.CanUpload() {
		return nil, apperr.ErrUploadBlocked
	}
	if err := file.Validate(); err != nil {
		g.err = err.Error()
		return nil, err
	}

	g.uploading = true
	g.err = ""

	api, noteID := g.api, g.noteID
	return func(ctx context.Context) Result {
		res := Result{Kind: KindUpload, NoteID: noteID}
		if _, err := api.UploadImage(ctx, noteID, file); err != nil {
			res.Err = err
			return res
		}
		res.Note, res.Err = api.GetNote(ctx, noteID)
		return res
	}, nil
}

// StartDelete clears the error, marks key as deleting and returns the Op
// removing it. Only one delete runs at a time.
func (g *Gallery) StartDelete(key string) (Op, error) {
	if g.disabled {
		return nil, apperr.ErrUploadBlocked
	}
	if !slices.Contains(g.images, key) {
		return nil, fmt.Errorf("gallery: unknown image %q: %w", key, apperr.ErrNotFound)
	}
	if len(g.deleting) > 0 {
		return nil, apperr.ErrDeleteInFlight
	}

	g.err = ""
	g.deleting[key] = true

	api, noteID := g.api, g.noteID
	return func(ctx context.Context) Result {
		res := Result{Kind: KindDelete, NoteID: noteID, Key: key}
		if _, err := api.DeleteImage(ctx, noteID, key); err != nil {
			res.Err = err
			return res
		}
		res.Note, res.Err = api.GetNote(ctx, noteID)
		return res
	}, nil
}

// Apply folds an Op result into the gallery. It reports whether the image
// lists changed. Results for another note are ignored.
func (g *Gallery) Apply(res Result) bool {
	if res.NoteID != g.noteID {
		return false
	}
	switch res.Kind {
	case KindUpload:
		g.uploading = false
	case KindDelete:
		delete(g.deleting, res.Key)
	}
	if res.Err != nil {
		g.err = apperr.Message(res.Err)
		return false
	}
	if res.Note == nil {
		return false
	}
	g.replace(res.Note.Images, res.Note.ImageURLs)
	return true
}

// Upload runs StartUpload, the Op and Apply in one call.
func (g *Gallery) Upload(ctx context.Context, file notes.ImageFile) error {
	op, err := g.StartUpload(file)
	if err != nil {
		return err
	}
	res := op(ctx)
	g.Apply(res)
	return res.Err
}

// Delete runs StartDelete, the Op and Apply in one call.
func (g *Gallery) Delete(ctx context.Context, key string) error {
	op, err := g.StartDelete(key)
	if err != nil {
		return err
	}
	res := op(ctx)
	g.Apply(res)
	return res.Err
}

func (g *Gallery) replace(images, urls []string) {
	g.images = slices.Clone(images)
	if g.images == nil {
		g.images = []string{}
	}
	g.urls = slices.Clone(urls)
	if g.urls == nil {
		g.urls = []string{}
	}
}
