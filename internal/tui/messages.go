package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/lumen/internal/editor"
	"github.com/starford/lumen/internal/gallery"
	"github.com/starford/lumen/internal/noteslist"
)

type notesLoadedMsg struct {
	result noteslist.LoadResult
}

type noteDeletedMsg struct {
	result noteslist.DeleteResult
}

type noteSavedMsg struct {
	result editor.SaveResult
}

// imagesChangedMsg carries the editor session the gallery op was started in.
type imagesChangedMsg struct {
	session uint64
	result  gallery.Result
}

func loadCmd(ctx context.Context, op noteslist.LoadOp) tea.Cmd {
	return func() tea.Msg {
		return notesLoadedMsg{result: op(ctx)}
	}
}

func deleteCmd(ctx context.Context, op noteslist.DeleteOp) tea.Cmd {
	return func() tea.Msg {
		return noteDeletedMsg{result: op(ctx)}
	}
}

func saveCmd(ctx context.Context, op editor.SaveOp) tea.Cmd {
	return func() tea.Msg {
		return noteSavedMsg{result: op(ctx)}
	}
}

func galleryCmd(ctx context.Context, session uint64, op gallery.Op) tea.Cmd {
	return func() tea.Msg {
		return imagesChangedMsg{session: session, result: op(ctx)}
	}
}
