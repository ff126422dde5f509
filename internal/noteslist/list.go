// Package noteslist holds the state behind the list of notes: loading,
// ordering and deletion with confirmation.
package noteslist

import (
	"context"
	"fmt"
	"slices"

	"github.com/starford/lumen/internal/apperr"
	"github.com/starford/lumen/internal/notes"
)

// LoadResult is the outcome of a LoadOp.
type LoadResult struct {
	Trigger uint64
	Notes   []notes.Note
	Err     error
}

// LoadOp fetches all notes.
type LoadOp func(ctx context.Context) LoadResult

// DeleteResult is the outcome of a DeleteOp.
type DeleteResult struct {
	ID  string
	Err error
}

// DeleteOp deletes one note.
type DeleteOp func(ctx context.Context) DeleteResult

// List is not safe for concurrent use.
type List struct {
	api      notes.API
	template string

	notes   []notes.Note
	loading bool
	loaded  bool
	trigger uint64
	err     string

	pendingDelete string
	deleting      map[string]bool
}

// New creates an empty list that has not loaded yet.
func New(api notes.API, template string) *List {
	return &List{api: api, template: template, deleting: map[string]bool{}}
}

// Notes returns the notes, newest update first.
func (l *List) Notes() []notes.Note { return slices.Clone(l.notes) }

// Len returns the number of notes.
func (l *List) Len() int { return len(l.notes) }

// At returns the note at display index i.
func (l *List) At(i int) (notes.Note, bool) {
	if i < 0 || i >= len(l.notes) {
		return notes.Note{}, false
	}
	return l.notes[i].Clone(), true
}

// Find returns the note with id.
func (l *List) Find(id string) (notes.Note, bool) {
	i := slices.IndexFunc(l.notes, func(n notes.Note) bool { return n.ID == id })
	if i < 0 {
		return notes.Note{}, false
	}
	return l.notes[i].Clone(), true
}

// Loading reports whether a fetch is in flight.
func (l *List) Loading() bool { return l.loading }

// Err returns the message to show, or "".
func (l *List) Err() string { return l.err }

// Empty reports whether the list loaded successfully and has no notes.
func (l *List) Empty() bool {
	return l.loaded && !l.loading && l.err == "" && len(l.notes) == 0
}

// CountLabel renders the note badge, e.g. "1 note" or "4 notes". It is empty
// when there are no notes.
func (l *List) CountLabel() string {
	switch n := len(l.notes); n {
	case 0:
		return ""
	case 1:
		return "1 note"
	default:
		return fmt.Sprintf("%d notes", n)
	}
}

// Preview returns up to limit display URLs of n's images, skipping images
// that have no URL, and how many images are not shown.
func (l *List) Preview(n notes.Note, limit int) (urls []string, more int) {
	for i := range n.Images {
		if len(urls) == limit {
			break
		}
		if u := n.DisplayURL(i, l.template); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, len(n.Images) - len(urls)
}

// Stale reports whether the list must be fetched for the given refresh trigger.
func (l *List) Stale(trigger uint64) bool {
	if l.loading {
		return false
	}
	return !l.loaded || l.trigger != trigger
}

// StartLoad marks the list as loading and returns the fetch. Retrying after
// an error is another StartLoad with the same trigger.
func (l *List) StartLoad(trigger uint64) LoadOp {
	l.loading = true
	l.err = ""
	l.trigger = trigger

	api := l.api
	return func(ctx context.Context) LoadResult {
		list, err := api.ListNotes(ctx)
		return LoadResult{Trigger: trigger, Notes: list, Err: err}
	}
}

// FinishLoad replaces the list wholesale with a fetch result, sorted by
// update time. Results for a superseded trigger are dropped.
func (l *List) FinishLoad(res LoadResult) {
	if res.Trigger != l.trigger {
		return
	}
	l.loading = false
	l.loaded = true
	if res.Err != nil {
		l.err = apperr.Message(res.Err)
		return
	}
	l.notes = slices.Clone(res.Notes)
	notes.SortByUpdatedDesc(l.notes)
}

// Load fetches synchronously.
func (l *List) Load(ctx context.Context, trigger uint64) error {
	res := l.StartLoad(trigger)(ctx)
	l.FinishLoad(res)
	return res.Err
}

// Deleting reports whether a delete of id is in flight.
func (l *List) Deleting(id string) bool { return l.deleting[id] }

// RequestDelete asks for confirmation before deleting id. A note whose
// delete is in flight cannot be requested again.
func (l *List) RequestDelete(id string) error {
	if _, ok := l.Find(id); !ok {
		return fmt.Errorf("noteslist: note %q: %w", id, apperr.ErrNotFound)
	}
	if l.deleting[id] {
		return apperr.ErrDeleteInFlight
	}
	l.pendingDelete = id
	return nil
}

// PendingDelete returns the note awaiting confirmation.
func (l *List) PendingDelete() (notes.Note, bool) {
	if l.pendingDelete == "" {
		return notes.Note{}, false
	}
	return l.Find(l.pendingDelete)
}

// ConfirmPrompt is the confirmation text for the pending delete.
func (l *List) ConfirmPrompt() string {
	n, ok := l.PendingDelete()
	if !ok {
		return ""
	}
	return fmt.Sprintf("Are you sure you want to delete %q? This action cannot be undone and will also delete any attached images.", n.Title)
}

// CancelDelete drops the pending confirmation.
func (l *List) CancelDelete() {
	l.pendingDelete = ""
}

// ConfirmDelete returns the delete for the pending note.
func (l *List) ConfirmDelete() (DeleteOp, error) {
	id := l.pendingDelete
	if id == "" {
		return nil, apperr.ErrNoPendingDelete
	}
	l.pendingDelete = ""
	if l.deleting[id] {
		return nil, apperr.ErrDeleteInFlight
	}
	l.deleting[id] = true

	api := l.api
	return func(ctx context.Context) DeleteResult {
		_, err := api.DeleteNote(ctx, id)
		return DeleteResult{ID: id, Err: err}
	}, nil
}

// FinishDelete drops the note locally on success without refetching. On
// failure the list is unchanged and the error is shown.
func (l *List) FinishDelete(res DeleteResult) {
	delete(l.deleting, res.ID)
	if res.Err != nil {
		l.err = apperr.Message(res.Err)
		return
	}
	l.notes = slices.DeleteFunc(l.notes, func(n notes.Note) bool { return n.ID == res.ID })
}

// Delete deletes id synchronously, skipping the confirmation step.
func (l *List) Delete(ctx context.Context, id string) error {
	if err := l.RequestDelete(id); err != nil {
		return err
	}
	op, err := l.ConfirmDelete()
	if err != nil {
		return err
	}
	res := op(ctx)
	l.FinishDelete(res)
	return res.Err
}
