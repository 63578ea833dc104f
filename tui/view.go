package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"mediascribe/media"
	"mediascribe/session"
)

// View renders the UI
func (m AppModel) View() string {
	if m.quitting {
		return MutedStyle.Render("Goodbye!\n")
	}

	var b strings.Builder

	b.WriteString(Header())
	b.WriteString("\n")

	switch m.step {
	case StepSelectSource:
		b.WriteString(m.renderSourceSelection())
	case StepPickFile:
		b.WriteString(m.renderFilePicker())
	case StepEnterPath:
		b.WriteString(m.renderInput("Enter a file path", "Audio or video up to "+media.FormatSize(media.MaxFileSize)))
	case StepEnterURL:
		b.WriteString(m.renderInput("Enter a media URL", "Direct download links and Google Drive share links work best"))
	case StepStaged:
		b.WriteString(m.renderStaged())
	case StepWorking:
		b.WriteString(m.renderWorking())
	case StepResults:
		b.WriteString(m.renderResults())
	case StepError:
		b.WriteString(m.renderError())
	}

	if m.notice != "" {
		b.WriteString("\n")
		if m.noticeError {
			b.WriteString(WarningStyle.Render(m.notice))
		} else {
			b.WriteString(InfoStyle.Render(m.notice))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

func (m AppModel) renderSourceSelection() string {
	title := TitleStyle.Render("Where is your recording?")

	var items strings.Builder
	for i, opt := range sourceOptions {
		cursor := "  "
		style := BodyStyle
		if i == m.sourceIndex {
			cursor = "> "
			style = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
		}
		items.WriteString(style.Render(cursor+opt.name) +
			MutedStyle.Render(" - "+opt.desc) + "\n")
	}

	return BoxStyle.Render(title + "\n\n" + items.String())
}

func (m AppModel) renderFilePicker() string {
	title := TitleStyle.Render("Select an audio or video file")
	desc := MutedStyle.Render("MP3, WAV, M4A, MP4, MOV and more, up to " + media.FormatSize(media.MaxFileSize))

	return BoxStyle.Render(title + "\n" + desc + "\n\n" + m.filepicker.View())
}

func (m AppModel) renderInput(heading, hint string) string {
	title := TitleStyle.Render(heading)
	desc := MutedStyle.Render(hint)

	return BoxStyle.Render(title + "\n" + desc + "\n\n" + m.textInput.View())
}

func (m AppModel) renderStaged() string {
	title := TitleStyle.Render("Ready to transcribe")

	card := ""
	if f := m.snap.File; f != nil {
		card = FileCard(f.Name, f.Subtype(), media.FormatSize(f.Size), max(m.width-12, 30))
	}

	var items strings.Builder
	for i, opt := range stagedOptions {
		cursor := "  "
		style := BodyStyle
		if i == m.stagedIndex {
			cursor = "> "
			style = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
		}
		items.WriteString(style.Render(cursor+opt) + "\n")
	}

	return BoxStyle.Render(title + "\n" + card + "\n\n" + items.String())
}

func (m AppModel) renderWorking() string {
	badgeStyle := BadgeStyle
	if m.workingStatus == session.StatusUploading {
		badgeStyle = BadgeWarningStyle
	}
	badge := badgeStyle.Render(strings.ToUpper(m.workingStatus.String()))
	status := BodyStyle.Render(m.working + "...")
	elapsed := MutedStyle.Render(fmt.Sprintf("Elapsed: %s", formatDuration(time.Since(m.startTime))))

	return BoxStyle.Render(
		badge + "\n\n" +
			m.spinner.View() + " " + status + "\n\n" +
			elapsed,
	)
}

func (m AppModel) renderTabs() string {
	var tabs []string
	for i, name := range tabTitles {
		if resultTab(i) == m.tab {
			tabs = append(tabs, ActiveTabStyle.Render(name))
		} else {
			tabs = append(tabs, TabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m AppModel) renderResults() string {
	title := SuccessStyle.Render("Transcription complete")
	if f := m.snap.File; f != nil {
		title += MutedStyle.Render("  " + f.Name)
	}

	label := m.activeField().Title()
	if m.copied {
		label += "  " + BadgeSuccessStyle.Render("Copied!")
	}

	return BoxStyle.Render(
		title + "\n\n" +
			m.renderTabs() + "\n\n" +
			InfoStyle.Render(label) + "\n" +
			m.viewport.View(),
	)
}

func (m AppModel) renderError() string {
	title := BadgeErrorStyle.Render("ERROR") + " " + ErrorStyle.Render("Something went wrong")

	message := m.snap.State.Message
	if message == "" {
		message = "Unknown error."
	}
	body := message
	if g := m.snap.State.Guidance; g != "" && g != message {
		body += "\n\n" + MutedStyle.Render(g)
	}

	errorBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(1, 2).
		Width(max(m.width-12, 30)).
		Render(body)

	return BoxStyle.Render(title + "\n\n" + errorBox)
}

// renderHelp renders context-sensitive help
func (m AppModel) renderHelp() string {
	var keys []string

	switch m.step {
	case StepSelectSource:
		keys = append(keys, "j/k", "Navigate", "enter", "Select", "q", "Quit")
	case StepPickFile:
		keys = append(keys, "j/k", "Navigate", "enter", "Select", "h/l", "Go up/down", "esc", "Back")
	case StepEnterPath, StepEnterURL:
		keys = append(keys, "enter", "Confirm", "esc", "Back")
	case StepStaged:
		keys = append(keys, "t", "Transcribe", "x", "Remove", "q", "Quit")
	case StepWorking:
		keys = append(keys, "esc", "Cancel")
	case StepResults:
		keys = append(keys, "tab", "Switch", "p", "Raw/Polished", "c", "Copy", "d", "Download", "n", "New", "q", "Quit")
	case StepError:
		if m.snap.File != nil {
			keys = append(keys, "r", "Retry")
		}
		keys = append(keys, "n", "Start over", "q", "Quit")
	}

	return helpLine(keys...)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}
