// Package ui provides the Bubble Tea terminal viewer for a status
// playback session.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/statusplay/statusplay/internal/player/session"
	"github.com/statusplay/statusplay/internal/types"
)

// Options configures the viewer.
type Options struct {
	Context  context.Context
	Session  *session.Session
	PollTick time.Duration
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx      context.Context
	session  *session.Session
	pollTick time.Duration
	keys     keyMap

	// UI state
	width    int
	height   int
	ready    bool
	showHelp bool
	notice   string

	// Data state
	vm session.ViewModel

	// Comment input
	commenting   bool
	commentInput textinput.Model
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = 100 * time.Millisecond
	}

	input := textinput.New()
	input.Placeholder = "Say something..."
	input.CharLimit = 500

	return Model{
		ctx:          ctx,
		session:      opts.Session,
		pollTick:     pollTick,
		keys:         DefaultKeyMap(),
		commentInput: input,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		startSessionCmd(m.ctx, m.session),
		tickCmd(m.pollTick),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.commentInput.Width = msg.Width - 4
		return m, nil

	case tickMsg:
		m.vm = m.session.ViewModel()
		if m.vm.State == session.StateClosed {
			return m, tea.Quit
		}
		return m, tickCmd(m.pollTick)

	case actionResultMsg:
		if msg.err != nil {
			m.notice = "error: " + msg.err.Error()
		} else {
			m.notice = msg.notice
		}
		return m, nil
	}

	return m, nil
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.commenting {
		return m.handleCommentKey(msg)
	}

	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch msg.String() {
	case "q", "esc", "ctrl+c":
		m.session.Close()
		return m, tea.Quit

	case "h", "?":
		m.showHelp = true
		return m, nil

	case "r":
		if m.vm.State == session.StateFailed {
			return m, startSessionCmd(m.ctx, m.session)
		}
		return m, nil

	case "right", " ":
		m.notice = ""
		m.session.Next()
		return m, nil

	case "left":
		m.notice = ""
		m.session.Previous()
		return m, nil

	case "p":
		if m.vm.IsPaused {
			m.session.HoldEnd()
		} else {
			m.session.HoldStart()
		}
		return m, nil

	case "l":
		return m, likeCmd(m.ctx, m.session)

	case "c":
		m.commenting = true
		m.commentInput.SetValue("")
		m.commentInput.Focus()
		// Freeze playback while typing
		m.session.HoldStart()
		return m, textinput.Blink

	case "d":
		if m.vm.IsOwner {
			return m, deleteCmd(m.ctx, m.session)
		}
		m.notice = "only the owner can delete posts"
		return m, nil

	case "s":
		if m.vm.IsOwner {
			post := m.vm.CurrentPost
			if post == nil {
				return m, nil
			}
			return m, downloadCmd(m.ctx, m.session, post.ID)
		}
		m.notice = "only the owner can save media"
		return m, nil
	}

	return m, nil
}

func (m Model) handleCommentKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.commenting = false
		m.commentInput.Blur()
		m.session.HoldEnd()
		return m, nil

	case "enter":
		content := m.commentInput.Value()
		m.commenting = false
		m.commentInput.Blur()
		m.session.HoldEnd()
		if content == "" {
			return m, nil
		}
		return m, commentCmd(m.ctx, m.session, content)
	}

	var cmd tea.Cmd
	m.commentInput, cmd = m.commentInput.Update(msg)
	return m, cmd
}

// Messages

type tickMsg time.Time

type actionResultMsg struct {
	notice string
	err    error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func startSessionCmd(ctx context.Context, s *session.Session) tea.Cmd {
	return func() tea.Msg {
		if err := s.Start(ctx); err != nil {
			return actionResultMsg{err: err}
		}
		return actionResultMsg{}
	}
}

func likeCmd(ctx context.Context, s *session.Session) tea.Cmd {
	return func() tea.Msg {
		if err := s.Like(ctx); err != nil {
			return actionResultMsg{err: err}
		}
		return actionResultMsg{}
	}
}

func commentCmd(ctx context.Context, s *session.Session, content string) tea.Cmd {
	return func() tea.Msg {
		if err := s.Comment(ctx, content, types.CommentText); err != nil {
			return actionResultMsg{err: err}
		}
		return actionResultMsg{notice: "comment sent"}
	}
}

func deleteCmd(ctx context.Context, s *session.Session) tea.Cmd {
	return func() tea.Msg {
		if err := s.DeleteCurrent(ctx); err != nil {
			return actionResultMsg{err: err}
		}
		return actionResultMsg{notice: "post deleted"}
	}
}

func downloadCmd(ctx context.Context, s *session.Session, postID string) tea.Cmd {
	return func() tea.Msg {
		body, err := s.DownloadCurrent(ctx)
		if err != nil {
			return actionResultMsg{err: err}
		}
		defer body.Close()

		name := fmt.Sprintf("status-%s.media", postID)
		f, err := os.Create(name)
		if err != nil {
			return actionResultMsg{err: err}
		}
		defer f.Close()

		if _, err := io.Copy(f, body); err != nil {
			return actionResultMsg{err: err}
		}
		return actionResultMsg{notice: "saved " + name}
	}
}
