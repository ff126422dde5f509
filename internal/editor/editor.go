// Package editor implements the note editing dialog as a state machine.
//
//	Closed -> EditingExisting        OpenExisting
//	Closed -> CreatingDraft          OpenNew
//	CreatingDraft -> CreatedAwaitingImages   successful create (once)
//	CreatedAwaitingImages -> Closed  Finish
//	EditingExisting -> Closed        successful update
//	any -> Closed                    Cancel (not while saving)
//
// Network calls never run inside the editor. StartSave hands back a SaveOp
// and FinishSave consumes its result, so the owner decides where the I/O runs.
package editor

import (
	"context"
	"strings"

	"github.com/starford/lumen/internal/apperr"
	"github.com/starford/lumen/internal/gallery"
	"github.com/starford/lumen/internal/notes"
)

// State is the dialog phase.
type State int

const (
	Closed State = iota
	EditingExisting
	CreatingDraft
	CreatedAwaitingImages
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case EditingExisting:
		return "editing"
	case CreatingDraft:
		return "creating"
	case CreatedAwaitingImages:
		return "awaiting-images"
	default:
		return "unknown"
	}
}

// Event is what the owner must react to after a transition.
type Event int

const (
	// EventNone means the editor is still open or nothing happened.
	EventNone Event = iota
	// EventSaved means the editor closed after persisting changes; dependent
	// views should refetch.
	EventSaved
	// EventClosed means the editor closed without saving.
	EventClosed
)

// SaveResult is the outcome of a SaveOp.
type SaveResult struct {
	Session uint64
	Created bool
	Note    *notes.Note
	Err     error
}

// SaveOp performs the create or update call.
type SaveOp func(ctx context.Context) SaveResult

// Editor is not safe for concurrent use.
type Editor struct {
	api      notes.API
	template string

	state   State
	session uint64

	note    *notes.Note
	title   string
	content string
	saving  bool
	err     string
	gallery *gallery.Gallery
}

// New creates a closed editor. template is the public image URL template
// handed to galleries.
func New(api notes.API, template string) *Editor {
	return &Editor{api: api, template: template}
}

// State returns the current phase.
func (e *Editor) State() State { return e.state }

// IsOpen reports whether the dialog is showing.
func (e *Editor) IsOpen() bool { return e.state != Closed }

// Session identifies the current opening of the dialog. Results tagged with
// an older session are dropped.
func (e *Editor) Session() uint64 { return e.session }

// Title returns the title field.
func (e *Editor) Title() string { return e.title }

// Content returns the content field.
func (e *Editor) Content() string { return e.content }

// Saving reports whether a save is in flight.
func (e *Editor) Saving() bool { return e.saving }

// Err returns the message to show, or "".
func (e *Editor) Err() string { return e.err }

// Gallery returns the image gallery, or nil when it is hidden.
func (e *Editor) Gallery() *gallery.Gallery {
	if !e.ShowGallery() {
		return nil
	}
	return e.gallery
}

// Note returns a copy of the active note: the one being edited or the one
// just created. ok is false while drafting or closed.
func (e *Editor) Note() (notes.Note, bool) {
	if e.note == nil {
		return notes.Note{}, false
	}
	return e.note.Clone(), true
}

// OpenExisting opens the dialog on an existing note with the gallery shown.
func (e *Editor) OpenExisting(n notes.Note) {
	e.reset()
	active := n.Clone()
	e.state = EditingExisting
	e.note = &active
	e.title = n.Title
	e.content = n.Content
	e.gallery = gallery.New(e.api, n.ID, n.Images, n.ImageURLs, e.template)
}

// OpenNew opens an empty draft. The gallery stays hidden until the note exists.
func (e *Editor) OpenNew() {
	e.reset()
	e.state = CreatingDraft
}

// SetTitle updates the title field while the form is shown.
func (e *Editor) SetTitle(s string) {
	if e.ShowForm() {
		e.title = s
	}
}

// SetContent updates the content field while the form is shown.
func (e *Editor) SetContent(s string) {
	if e.ShowForm() {
		e.content = s
	}
}

// ShowForm reports whether the title and content inputs are editable.
func (e *Editor) ShowForm() bool {
	return e.state == EditingExisting || e.state == CreatingDraft
}

// ShowSummary reports whether the read-only summary of a just-created note is shown.
func (e *Editor) ShowSummary() bool {
	return e.state == CreatedAwaitingImages
}

// ShowGallery reports whether the image gallery is visible.
func (e *Editor) ShowGallery() bool {
	return e.state == EditingExisting || e.state == CreatedAwaitingImages
}

// CanSave reports whether the save control is active.
func (e *Editor) CanSave() bool {
	return e.ShowForm() && !e.saving && strings.TrimSpace(e.title) != ""
}

// CanCancel reports whether the cancel control is active.
func (e *Editor) CanCancel() bool {
	return e.state != Closed && !e.saving
}

// CanFinish reports whether the finish control is shown.
func (e *Editor) CanFinish() bool {
	return e.state == CreatedAwaitingImages
}

// Heading is the dialog title for the current phase.
func (e *Editor) Heading() string {
	switch e.state {
	case CreatingDraft:
		return "Create New Note"
	case CreatedAwaitingImages:
		return "Add Images to Your Note"
	case EditingExisting:
		return "Edit Note"
	default:
		return ""
	}
}

// SaveLabel is the caption of the save control.
func (e *Editor) SaveLabel() string {
	switch {
	case e.saving:
		return "Saving..."
	case e.state == CreatingDraft:
		return "Create & Add Images"
	default:
		return "Save Changes"
	}
}

// StartSave begins a create or update. It returns no SaveOp, and nothing is
// sent, when the title is blank, a save is already running, or the form is
// not shown.
func (e *Editor) StartSave() (SaveOp, error) {
	if !e.ShowForm() || e.saving {
		return nil, apperr.ErrSaveBlocked
	}
	if err := notes.ValidateTitle(e.title); err != nil {
		e.err = err.Error()
		return nil, err
	}

	e.saving = true
	e.err = ""
	if e.gallery != nil {
		e.gallery.SetDisabled(true)
	}

	api, session := e.api, e.session
	title := strings.TrimSpace(e.title)
	content := strings.TrimSpace(e.content)

	if e.state == CreatingDraft {
		return func(ctx context.Context) SaveResult {
			n, err := api.CreateNote(ctx, notes.NoteCreate{Title: title, Content: content})
			return SaveResult{Session: session, Created: true, Note: n, Err: err}
		}, nil
	}

	id := e.note.ID
	return func(ctx context.Context) SaveResult {
		n, err := api.UpdateNote(ctx, id, notes.NoteUpdate{Title: &title, Content: &content})
		return SaveResult{Session: session, Note: n, Err: err}
	}, nil
}

// FinishSave applies a save result. Results from an earlier session are ignored.
func (e *Editor) FinishSave(res SaveResult) Event {
	if res.Session != e.session || !e.saving {
		return EventNone
	}
	e.saving = false
	if e.gallery != nil {
		e.gallery.SetDisabled(false)
	}

	if res.Err != nil {
		e.err = apperr.Message(res.Err)
		return EventNone
	}

	if res.Created {
		if e.state != CreatingDraft || res.Note == nil {
			return EventNone
		}
		created := res.Note.Clone()
		e.state = CreatedAwaitingImages
		e.note = &created
		e.title = created.Title
		e.content = created.Content
		e.gallery = gallery.New(e.api, created.ID, created.Images, created.ImageURLs, e.template)
		return EventNone
	}

	e.close()
	return EventSaved
}

// Finish closes the awaiting-images phase and asks the owner to refresh.
func (e *Editor) Finish() Event {
	if e.state != CreatedAwaitingImages {
		return EventNone
	}
	e.close()
	return EventSaved
}

// Cancel discards unsaved edits and closes without calling the API. It is a
// no-op while saving. Cancelling after a create still reports EventSaved
// because the note already exists on the server.
func (e *Editor) Cancel() Event {
	if !e.CanCancel() {
		return EventNone
	}
	created := e.state == CreatedAwaitingImages
	e.close()
	if created {
		return EventSaved
	}
	return EventClosed
}

// ApplyGallery folds a gallery result into the editor and keeps the active
// note's image lists in step with the gallery.
func (e *Editor) ApplyGallery(res gallery.Result) bool {
	g := e.Gallery()
	if g == nil {
		return false
	}
	if !g.Apply(res) {
		return false
	}
	if e.note != nil {
		e.note.Images = g.Images()
		e.note.ImageURLs = g.ImageURLs()
	}
	return true
}

// Save runs StartSave, the SaveOp and FinishSave in one call.
func (e *Editor) Save(ctx context.Context) (Event, error) {
	op, err := e.StartSave()
	if err != nil {
		return EventNone, err
	}
	res := op(ctx)
	return e.FinishSave(res), res.Err
}

func (e *Editor) close() {
	e.reset()
	e.state = Closed
}

func (e *Editor) reset() {
	e.session++
	e.note = nil
	e.title = ""
	e.content = ""
	e.saving = false
	e.err = ""
	e.gallery = nil
}
