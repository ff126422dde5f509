// Package tui is the interactive terminal front end built on Bubble Tea.
package tui

import (
	"context"
	"errors"
	"log/slog"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/lumen/internal/apperr"
	"github.com/starford/lumen/internal/editor"
	"github.com/starford/lumen/internal/gallery"
	"github.com/starford/lumen/internal/notes"
	"github.com/starford/lumen/internal/shell"
)

const previewImages = 3

type focus int

const (
	focusTitle focus = iota
	focusContent
)

// Model is the root Bubble Tea model. All workflow state lives in the shell;
// the model only owns widgets and cursors.
type Model struct {
	ctx    context.Context
	shell  *shell.Shell
	logger *slog.Logger

	listKeys   *listKeyMap
	editorKeys *editorKeyMap
	help       help.Model
	spinner    spinner.Model

	title   textinput.Model
	content textarea.Model
	focus   focus

	path      textinput.Model
	prompting bool
	flash     string

	cursor      int
	imageCursor int

	width  int
	height int
}

// New builds the model around sh. ctx bounds every API call.
func New(ctx context.Context, sh *shell.Shell, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}

	ti := textinput.New()
	ti.Placeholder = "Enter note title..."
	ti.CharLimit = 200
	ti.Width = 50

	ta := textarea.New()
	ta.Placeholder = "Write your note here..."
	ta.SetWidth(60)
	ta.SetHeight(8)
	ta.ShowLineNumbers = false

	pi := textinput.New()
	pi.Placeholder = "/path/to/image.png"
	pi.Width = 50

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	return &Model{
		ctx:        ctx,
		shell:      sh,
		logger:     logger,
		listKeys:   newListKeyMap(),
		editorKeys: newEditorKeyMap(),
		help:       help.New(),
		spinner:    sp,
		title:      ti,
		content:    ta,
		path:       pi,
	}
}

// Run starts the program on the alternate screen and blocks until it quits.
func Run(ctx context.Context, api notes.API, template string, logger *slog.Logger) error {
	m := New(ctx, shell.New(api, template), logger)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.maybeLoad()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		if w := msg.Width - 12; w > 20 {
			m.content.SetWidth(w)
			m.title.Width = w
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case notesLoadedMsg:
		m.shell.List().FinishLoad(msg.result)
		if msg.result.Err != nil {
			m.logger.Warn("list notes failed", slog.String("error", msg.result.Err.Error()))
		}
		m.clampCursor()
		return m, m.maybeLoad()

	case noteDeletedMsg:
		m.shell.List().FinishDelete(msg.result)
		if msg.result.Err != nil {
			m.logger.Warn("delete note failed", slog.String("id", msg.result.ID), slog.String("error", msg.result.Err.Error()))
		}
		m.clampCursor()
		return m, nil

	case noteSavedMsg:
		ed := m.shell.Editor()
		ev := ed.FinishSave(msg.result)
		if msg.result.Err != nil && msg.result.Session == ed.Session() {
			m.logger.Warn("save note failed", slog.String("error", msg.result.Err.Error()))
		}
		return m, m.afterEditorEvent(ev)

	case imagesChangedMsg:
		if msg.session != m.shell.Editor().Session() {
			return m, nil
		}
		m.shell.Editor().ApplyGallery(msg.result)
		m.clampImageCursor()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case m.shell.Editor().IsOpen():
		return m.handleEditorKey(msg)
	case m.shell.Welcome():
		return m.handleWelcomeKey(msg)
	default:
		return m.handleListKey(msg)
	}
}

func (m *Model) handleWelcomeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.listKeys.start):
		m.shell.GetStarted()
		return m, m.maybeLoad()
	case key.Matches(msg, m.listKeys.quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	list := m.shell.List()

	if _, pending := list.PendingDelete(); pending {
		switch {
		case key.Matches(msg, m.listKeys.confirm):
			op, err := list.ConfirmDelete()
			if err != nil {
				return m, nil
			}
			return m, deleteCmd(m.ctx, op)
		case key.Matches(msg, m.listKeys.decline):
			list.CancelDelete()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.listKeys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.listKeys.up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.listKeys.down):
		if m.cursor < list.Len()-1 {
			m.cursor++
		}
	case key.Matches(msg, m.listKeys.create):
		m.shell.CreateNote()
		return m, m.openEditor()
	case key.Matches(msg, m.listKeys.edit):
		if n, ok := list.At(m.cursor); ok {
			m.shell.EditNote(n)
			return m, m.openEditor()
		}
	case key.Matches(msg, m.listKeys.delete):
		if n, ok := list.At(m.cursor); ok {
			_ = list.RequestDelete(n.ID)
		}
	case key.Matches(msg, m.listKeys.reload):
		if list.Loading() {
			return m, nil
		}
		op := list.StartLoad(m.shell.RefreshTrigger())
		return m, tea.Batch(loadCmd(m.ctx, op), m.spinner.Tick)
	case key.Matches(msg, m.listKeys.about):
		m.shell.ShowAbout()
	}
	return m, nil
}

func (m *Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ed := m.shell.Editor()
	g := ed.Gallery()

	if m.prompting {
		switch {
		case key.Matches(msg, m.editorKeys.cancel):
			m.closePrompt()
			return m, nil
		case key.Matches(msg, m.editorKeys.submit):
			return m, m.submitUpload()
		}
		var cmd tea.Cmd
		m.path, cmd = m.path.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.editorKeys.cancel):
		return m, m.afterEditorEvent(ed.Cancel())
	case key.Matches(msg, m.editorKeys.save):
		op, err := ed.StartSave()
		if err != nil {
			return m, nil
		}
		return m, tea.Batch(saveCmd(m.ctx, op), m.spinner.Tick)
	case key.Matches(msg, m.editorKeys.finish) && ed.CanFinish():
		return m, m.afterEditorEvent(ed.Finish())
	case key.Matches(msg, m.editorKeys.upload) && g != nil:
		if !g.CanUpload() {
			return m, nil
		}
		m.prompting = true
		m.flash = ""
		m.path.SetValue("")
		m.title.Blur()
		m.content.Blur()
		return m, m.path.Focus()
	case key.Matches(msg, m.editorKeys.deleteImage) && g != nil:
		if !g.CanDelete() {
			return m, nil
		}
		images := g.Images()
		if m.imageCursor >= len(images) {
			return m, nil
		}
		op, err := g.StartDelete(images[m.imageCursor])
		if err != nil {
			return m, nil
		}
		return m, galleryCmd(m.ctx, ed.Session(), op)
	case key.Matches(msg, m.editorKeys.prevImage) && g != nil:
		if m.imageCursor > 0 {
			m.imageCursor--
		}
		return m, nil
	case key.Matches(msg, m.editorKeys.nextImage) && g != nil:
		if m.imageCursor < g.Count()-1 {
			m.imageCursor++
		}
		return m, nil
	case key.Matches(msg, m.editorKeys.focus) && ed.ShowForm():
		return m, m.toggleFocus()
	}

	if !ed.ShowForm() {
		return m, nil
	}

	var cmd tea.Cmd
	if m.focus == focusTitle {
		m.title, cmd = m.title.Update(msg)
		ed.SetTitle(m.title.Value())
	} else {
		m.content, cmd = m.content.Update(msg)
		ed.SetContent(m.content.Value())
	}
	return m, cmd
}

// openEditor loads the editor's fields into the widgets.
func (m *Model) openEditor() tea.Cmd {
	ed := m.shell.Editor()
	m.title.SetValue(ed.Title())
	m.title.CursorEnd()
	m.content.SetValue(ed.Content())
	m.imageCursor = 0
	m.closePrompt()
	m.focus = focusContent
	return m.toggleFocus()
}

func (m *Model) toggleFocus() tea.Cmd {
	if m.focus == focusTitle {
		m.focus = focusContent
		m.title.Blur()
		return m.content.Focus()
	}
	m.focus = focusTitle
	m.content.Blur()
	return m.title.Focus()
}

func (m *Model) closePrompt() {
	m.prompting = false
	m.path.Blur()
	m.path.SetValue("")
}

func (m *Model) submitUpload() tea.Cmd {
	ed := m.shell.Editor()
	g := ed.Gallery()
	path := m.path.Value()
	m.closePrompt()
	if g == nil || path == "" {
		return nil
	}

	file, err := gallery.ReadImageFile(path)
	if err != nil {
		m.flash = err.Error()
		return nil
	}
	op, err := g.StartUpload(file)
	if err != nil {
		if errors.Is(err, apperr.ErrUploadBlocked) {
			m.flash = err.Error()
		}
		return nil
	}
	return tea.Batch(galleryCmd(m.ctx, ed.Session(), op), m.spinner.Tick)
}

// afterEditorEvent reacts to an editor transition. A closed editor resets the
// widgets, and a saved note makes the list stale.
func (m *Model) afterEditorEvent(ev editor.Event) tea.Cmd {
	if ev == editor.EventNone {
		if !m.shell.Editor().ShowForm() {
			m.title.Blur()
			m.content.Blur()
		}
		m.clampImageCursor()
		return nil
	}
	m.shell.Handle(ev)
	m.title.Blur()
	m.content.Blur()
	m.closePrompt()
	m.flash = ""
	return m.maybeLoad()
}

func (m *Model) maybeLoad() tea.Cmd {
	if !m.shell.NeedsLoad() {
		return nil
	}
	op := m.shell.List().StartLoad(m.shell.RefreshTrigger())
	return tea.Batch(loadCmd(m.ctx, op), m.spinner.Tick)
}

func (m *Model) busy() bool {
	ed := m.shell.Editor()
	if m.shell.List().Loading() || ed.Saving() {
		return true
	}
	g := ed.Gallery()
	return g != nil && g.Uploading()
}

func (m *Model) clampCursor() {
	n := m.shell.List().Len()
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) clampImageCursor() {
	g := m.shell.Editor().Gallery()
	if g == nil {
		m.imageCursor = 0
		return
	}
	if m.imageCursor >= g.Count() {
		m.imageCursor = g.Count() - 1
	}
	if m.imageCursor < 0 {
		m.imageCursor = 0
	}
}
