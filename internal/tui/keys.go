package tui

import "github.com/charmbracelet/bubbles/key"

type listKeyMap struct {
	up      key.Binding
	down    key.Binding
	create  key.Binding
	edit    key.Binding
	delete  key.Binding
	reload  key.Binding
	about   key.Binding
	quit    key.Binding
	confirm key.Binding
	decline key.Binding
	start   key.Binding
}

func newListKeyMap() *listKeyMap {
	return &listKeyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		create:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new note")),
		edit:    key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter/e", "edit")),
		delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		about:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "about")),
		quit:    key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		confirm: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "delete")),
		decline: key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n/esc", "keep")),
		start:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start writing")),
	}
}

func (k *listKeyMap) shortHelp() []key.Binding {
	return []key.Binding{k.create, k.edit, k.delete, k.reload, k.about, k.quit}
}

type editorKeyMap struct {
	save        key.Binding
	cancel      key.Binding
	finish      key.Binding
	focus       key.Binding
	upload      key.Binding
	deleteImage key.Binding
	prevImage   key.Binding
	nextImage   key.Binding
	submit      key.Binding
}

func newEditorKeyMap() *editorKeyMap {
	return &editorKeyMap{
		save:        key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		cancel:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		finish:      key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "finish")),
		focus:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch field")),
		upload:      key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("ctrl+u", "upload image")),
		deleteImage: key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "delete image")),
		prevImage:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "prev image")),
		nextImage:   key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "next image")),
		submit:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "upload")),
	}
}
