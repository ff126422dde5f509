package tui

import (
	"fmt"
	"path"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/starford/lumen/internal/gallery"
	"github.com/starford/lumen/internal/notes"
	"github.com/starford/lumen/internal/shell"
)

const updatedLayout = "Jan 2, 2006 03:04 PM"

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	switch {
	case m.shell.Editor().IsOpen():
		body = m.editorView()
	case m.shell.Welcome():
		body = m.welcomeView()
	default:
		body = m.listView()
	}
	return appStyle.Render(body)
}

func (m *Model) welcomeView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(shell.AppName))
	b.WriteString("\n\n")
	b.WriteString(shell.Tagline)
	b.WriteString("\n\n")

	cards := make([]string, 0, len(shell.Features))
	for _, f := range shell.Features {
		cards = append(cards, cardStyle.Render(titleStyle.Render(f.Title)+"\n"+f.Description))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	b.WriteString("\n\n")
	b.WriteString(buttonStyle.Render("Start Writing"))
	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Render(shell.Footer))
	b.WriteString("\n\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.listKeys.start, m.listKeys.quit}))
	return b.String()
}

func (m *Model) listView() string {
	list := m.shell.List()

	var b strings.Builder
	b.WriteString(titleStyle.Render("Your Notes"))
	if label := list.CountLabel(); label != "" {
		b.WriteString(" ")
		b.WriteString(badgeStyle.Render(label))
	}
	b.WriteString("\n\n")

	switch {
	case list.Loading():
		b.WriteString(m.spinner.View() + " Loading notes...\n")
	case list.Err() != "":
		b.WriteString(errorStyle.Render("Error: "+list.Err()) + "\n")
		b.WriteString(mutedStyle.Render("Press r to try again.") + "\n")
	case list.Empty():
		b.WriteString("No notes yet\n")
		b.WriteString(mutedStyle.Render("Create your first note to get started. Press n.") + "\n")
	}

	if !list.Loading() {
		for i, n := range list.Notes() {
			b.WriteString(m.noteItem(n, i == m.cursor))
			b.WriteString("\n")
		}
	}

	if prompt := list.ConfirmPrompt(); prompt != "" {
		b.WriteString("\n")
		b.WriteString(dialogStyle.Render(
			titleStyle.Render("Delete Note") + "\n\n" + prompt + "\n\n" +
				m.help.ShortHelpView([]key.Binding{m.listKeys.confirm, m.listKeys.decline})))
		return b.String()
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.listKeys.shortHelp()))
	return b.String()
}

func (m *Model) noteItem(n notes.Note, selected bool) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(n.Title))
	if label := gallery.CountLabel(len(n.Images)); label != "" {
		b.WriteString(" ")
		b.WriteString(badgeStyle.Render(label))
	}
	b.WriteString("\n")
	if !n.UpdatedAt.IsZero() {
		b.WriteString(mutedStyle.Render("Updated " + n.UpdatedAt.Local().Format(updatedLayout)))
		b.WriteString("\n")
	}
	if m.shell.List().Deleting(n.ID) {
		b.WriteString(mutedStyle.Render("Deleting..."))
		b.WriteString("\n")
	}
	if line := firstLine(n.Content); line != "" {
		b.WriteString(truncate(line, 80))
		b.WriteString("\n")
	}
	urls, more := m.shell.List().Preview(n, previewImages)
	for _, u := range urls {
		b.WriteString(mutedStyle.Render("  " + truncate(u, 76)))
		b.WriteString("\n")
	}
	if more > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  +%d more", more)))
		b.WriteString("\n")
	}

	text := strings.TrimSuffix(b.String(), "\n")
	if selected {
		return selectedStyle.Render(text)
	}
	return itemStyle.Render(text)
}

func (m *Model) editorView() string {
	ed := m.shell.Editor()

	var b strings.Builder
	b.WriteString(titleStyle.Render(ed.Heading()))
	b.WriteString("\n\n")

	if ed.ShowForm() {
		b.WriteString("Title\n")
		b.WriteString(m.title.View())
		b.WriteString("\n\nContent\n")
		b.WriteString(m.content.View())
		b.WriteString("\n")
	}
	if ed.ShowSummary() {
		if n, ok := ed.Note(); ok {
			b.WriteString(lipgloss.NewStyle().Bold(true).Render(n.Title))
			b.WriteString("\n")
			if n.Content != "" {
				b.WriteString(n.Content)
				b.WriteString("\n")
			}
		}
		b.WriteString(mutedStyle.Render("Your note has been created. Add some images to make it more visual."))
		b.WriteString("\n")
	}

	if g := ed.Gallery(); g != nil {
		b.WriteString("\n")
		b.WriteString(m.galleryView(g))
	}

	if msg := ed.Err(); msg != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(msg))
		b.WriteString("\n")
	}
	if m.flash != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.flash))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.editorControls())
	return dialogStyle.Render(b.String())
}

func (m *Model) galleryView(g *gallery.Gallery) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Images"))
	if label := g.CountLabel(); label != "" {
		b.WriteString(" ")
		b.WriteString(badgeStyle.Render(label))
	}
	b.WriteString("\n")

	images := g.Images()
	if len(images) == 0 {
		b.WriteString(mutedStyle.Render("No images yet"))
		b.WriteString("\n")
	}
	for i, k := range images {
		marker := "  "
		if i == m.imageCursor {
			marker = "> "
		}
		b.WriteString(marker + path.Base(k) + " " + mutedStyle.Render(truncate(g.DisplayURL(i), 70)))
		if g.Deleting(k) {
			b.WriteString(" " + mutedStyle.Render("deleting..."))
		}
		b.WriteString("\n")
	}

	if g.Uploading() {
		b.WriteString(m.spinner.View() + " " + g.UploadLabel() + "\n")
	}
	if msg := g.Err(); msg != "" {
		b.WriteString(errorStyle.Render(msg))
		b.WriteString("\n")
	}
	if m.prompting {
		b.WriteString("\nImage path\n")
		b.WriteString(m.path.View())
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) editorControls() string {
	ed := m.shell.Editor()
	k := m.editorKeys

	var buttons []string
	if ed.ShowForm() {
		style := disabledButtonStyle
		if ed.CanSave() {
			style = buttonStyle
		}
		label := ed.SaveLabel()
		if ed.Saving() {
			label = m.spinner.View() + " " + label
		}
		buttons = append(buttons, style.Render(label))
	}
	if ed.CanFinish() {
		buttons = append(buttons, buttonStyle.Render("Finish"))
	}
	if g := ed.Gallery(); g != nil {
		style := disabledButtonStyle
		if g.CanUpload() {
			style = buttonStyle
		}
		buttons = append(buttons, style.Render(g.UploadLabel()))
	}

	var bindings []key.Binding
	switch {
	case m.prompting:
		bindings = []key.Binding{k.submit, k.cancel}
	default:
		if ed.ShowForm() {
			bindings = append(bindings, k.save, k.focus)
		}
		if ed.CanFinish() {
			bindings = append(bindings, k.finish)
		}
		if ed.Gallery() != nil {
			g := ed.Gallery()
			k.upload.SetEnabled(g.CanUpload())
			k.deleteImage.SetEnabled(g.CanDelete() && g.Count() > 0)
			bindings = append(bindings, k.upload, k.deleteImage, k.prevImage, k.nextImage)
		}
		bindings = append(bindings, k.cancel)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, buttons...) + "\n\n" + m.help.ShortHelpView(bindings)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
