// Package shell composes the notes list and the editor and owns the refresh
// counter that tells the list to refetch.
package shell

import (
	"github.com/starford/lumen/internal/editor"
	"github.com/starford/lumen/internal/notes"
	"github.com/starford/lumen/internal/noteslist"
)

// Feature is one card of the welcome screen.
type Feature struct {
	Title       string
	Description string
}

// Welcome screen copy.
const (
	AppName = "Notes"
	Tagline = "Organize your thoughts with simple, clean note-taking. Capture ideas, add images, and stay organized."
	Footer  = "Simple, clean note-taking"
)

// Features are shown on the welcome screen.
var Features = []Feature{
	{"Create & Capture", "Instantly create notes and capture your thoughts. Add images while writing for a complete experience."},
	{"Visual Stories", "Enhance your notes with images. Upload photos while creating or editing to tell richer stories."},
	{"Find & Organize", "Quickly search through your notes and find exactly what you need when you need it."},
}

// Shell is not safe for concurrent use.
type Shell struct {
	welcome bool
	refresh uint64

	list   *noteslist.List
	editor *editor.Editor
}

// New builds a shell showing the welcome screen.
func New(api notes.API, template string) *Shell {
	return &Shell{
		welcome: true,
		list:    noteslist.New(api, template),
		editor:  editor.New(api, template),
	}
}

// List returns the notes list.
func (s *Shell) List() *noteslist.List { return s.list }

// Editor returns the note editor.
func (s *Shell) Editor() *editor.Editor { return s.editor }

// Welcome reports whether the welcome screen is showing.
func (s *Shell) Welcome() bool { return s.welcome }

// RefreshTrigger is bumped every time a note is saved.
func (s *Shell) RefreshTrigger() uint64 { return s.refresh }

// GetStarted leaves the welcome screen.
func (s *Shell) GetStarted() { s.welcome = false }

// ShowAbout returns to the welcome screen.
func (s *Shell) ShowAbout() { s.welcome = true }

// EditNote opens the editor on n.
func (s *Shell) EditNote(n notes.Note) {
	s.welcome = false
	s.editor.OpenExisting(n)
}

// CreateNote opens the editor on an empty draft.
func (s *Shell) CreateNote() {
	s.welcome = false
	s.editor.OpenNew()
}

// Handle reacts to an editor event. It reports whether the list is now stale.
func (s *Shell) Handle(ev editor.Event) bool {
	if ev == editor.EventSaved {
		s.refresh++
		return true
	}
	return false
}

// NeedsLoad reports whether the list should be fetched now.
func (s *Shell) NeedsLoad() bool {
	return !s.welcome && s.list.Stale(s.refresh)
}
