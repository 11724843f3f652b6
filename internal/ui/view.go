package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/statusplay/statusplay/internal/player/session"
	"github.com/statusplay/statusplay/internal/types"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	badgeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("63")).Padding(0, 1)
	likedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
	pausedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	contentStyle = lipgloss.NewStyle().Padding(1, 2)
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	switch m.vm.State {
	case session.StateLoading:
		return contentStyle.Render("Loading status...")
	case session.StateFailed:
		msg := "Could not load the status set."
		if m.notice != "" {
			msg += "\n" + m.notice
		}
		return contentStyle.Render(msg + "\n\n" + dimStyle.Render("r to retry, q to quit"))
	case session.StateNoContent:
		return contentStyle.Render("Nothing to show.\n\n" + dimStyle.Render("q to quit"))
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(renderProgressRow(m.vm.ProgressByIndex, m.width-2))
	b.WriteString("\n")
	b.WriteString(m.renderPost())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

func (m Model) renderHeader() string {
	name := m.vm.User.Name
	if name == "" {
		name = m.vm.User.ID
	}

	position := ""
	if len(m.vm.Posts) > 0 {
		position = fmt.Sprintf("  %d/%d", m.vm.CurrentIndex+1, len(m.vm.Posts))
	}

	header := headerStyle.Render(name) + dimStyle.Render(position)
	if m.vm.IsPaused {
		header += "  " + pausedStyle.Render("PAUSED")
	}
	return header
}

// renderProgressRow draws one segment per post, WhatsApp-style: filled
// for played posts, partially filled for the current one.
func renderProgressRow(progress []float64, width int) string {
	if len(progress) == 0 || width <= 0 {
		return ""
	}

	gaps := len(progress) - 1
	segWidth := (width - gaps) / len(progress)
	if segWidth < 1 {
		segWidth = 1
	}

	segments := make([]string, len(progress))
	for i, p := range progress {
		filled := int(p / 100 * float64(segWidth))
		if filled > segWidth {
			filled = segWidth
		}
		segments[i] = strings.Repeat("━", filled) + strings.Repeat("─", segWidth-filled)
	}
	return strings.Join(segments, " ")
}

func (m Model) renderPost() string {
	post := m.vm.CurrentPost
	if post == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(badgeStyle.Render(string(post.MediaKind)))
	b.WriteString("\n\n")

	switch post.MediaKind {
	case types.MediaText:
		b.WriteString(post.Payload.Text)
	case types.MediaLocation:
		if post.Payload.Latitude != nil && post.Payload.Longitude != nil {
			b.WriteString(fmt.Sprintf("(%.5f, %.5f)", *post.Payload.Latitude, *post.Payload.Longitude))
		}
	default:
		b.WriteString(dimStyle.Render(post.Payload.URL))
	}

	if post.Caption != "" {
		b.WriteString("\n\n")
		b.WriteString(post.Caption)
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderCounts(post))

	return contentStyle.Render(b.String())
}

func (m Model) renderCounts(post *types.StatusPost) string {
	heart := "♡"
	if post.LikedByViewer {
		heart = likedStyle.Render("♥")
	}
	line := fmt.Sprintf("%s %d   💬 %d", heart, post.LikeCount, len(post.Comments))

	if m.vm.IsOwner {
		line += fmt.Sprintf("   👁 %d", m.vm.ViewerCounts[post.ID])
	}
	return line
}

func (m Model) renderFooter() string {
	if m.commenting {
		return "\n" + m.commentInput.View() + "\n" + dimStyle.Render("enter to send, esc to cancel")
	}

	footer := dimStyle.Render("←/→ navigate · p hold · l like · c comment · h help · q quit")
	if m.notice != "" {
		footer = noticeStyle.Render(m.notice) + "\n" + footer
	}
	return "\n" + footer
}

func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Keys"))
	b.WriteString("\n\n")

	for _, group := range m.keys.FullHelp() {
		for _, binding := range group {
			b.WriteString(fmt.Sprintf("  %-12s %s\n", binding.Help().Key, binding.Help().Desc))
		}
		b.WriteString("\n")
	}

	b.WriteString(dimStyle.Render("press any key to close"))
	return contentStyle.Render(b.String())
}
