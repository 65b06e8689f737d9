package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/facescan/internal/auth"
	"github.com/desertthunder/facescan/internal/images"
	"github.com/desertthunder/facescan/internal/session"
	"github.com/desertthunder/facescan/internal/shared"
)

// Field identifies the focused part of the form.
type Field int

const (
	LinkField Field = iota
	ImageField
	ResultsField
)

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	controller *session.Controller
	provider   auth.Provider
	logger     *log.Logger

	state     session.State
	probing   bool
	signingIn bool
	notice    string

	focus    Field
	link     textinput.Model
	image    textinput.Model
	results  list.Model
	progress progress.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap

	width  int
	height int
}

// ModelOpts contains the dependencies of a [Model].
type ModelOpts struct {
	Controller *session.Controller
	// Provider may be nil when no Google client is configured; sign-in then fails with a message.
	Provider auth.Provider
	Logger   *log.Logger
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts ModelOpts) *Model {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	link := textinput.New()
	link.Placeholder = "https://drive.google.com/drive/folders/..."
	link.Prompt = "> "
	link.CharLimit = 2048
	link.Focus()

	img := textinput.New()
	img.Placeholder = "path/to/reference.jpg"
	img.Prompt = "> "
	img.CharLimit = 4096

	results := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	results.Title = "Matching Images"
	results.SetShowHelp(false)
	results.SetFilteringEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		ctx:        ctx,
		controller: opts.Controller,
		provider:   opts.Provider,
		logger:     opts.Logger,
		state:      opts.Controller.Snapshot(),
		probing:    true,
		focus:      LinkField,
		link:       link,
		image:      img,
		results:    results,
		progress:   progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		spinner:    sp,
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// State returns the last rendered session state.
func (m *Model) State() session.State { return m.state }

// Focus returns the focused field.
func (m *Model) Focus() Field { return m.focus }

// Init probes backend health once and starts the cursor blinking.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.checkHealth(), textinput.Blink)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.link.Width = max(msg.Width-6, 20)
		m.image.Width = max(msg.Width-6, 20)
		m.progress.Width = max(msg.Width-4, 10)
		m.results.SetSize(max(msg.Width-4, 20), max(msg.Height-20, 5))
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		if m.state.Status != session.InFlight {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateInputs(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgHealthChecked:
		m.probing = false
		m.state = m.controller.Snapshot()
		if healthy, _ := msg.data.(bool); !healthy {
			m.logger.Warn("backend health check failed")
		}

	case MsgImageLoaded:
		data := msg.data.(imageLoaded)
		m.state = data.state
		if data.err != nil {
			m.logger.Debug("image rejected", "err", data.err)
		}

	case MsgLoginFinished:
		data := msg.data.(loginFinished)
		m.signingIn = false
		m.notice = ""
		if data.err != nil {
			m.logger.Error("google sign-in failed", "err", data.err)
			st, err := m.controller.AuthFailed()
			if err != nil {
				m.logger.Debug("auth error not shown", "err", err)
			}
			m.state = st
		} else {
			m.state = m.controller.SetCredential(data.credential)
		}

	case MsgScanFinished:
		m.state = msg.data.(session.State)
		m.results.SetItems(matchItems(m.state.Results))
		m.results.ResetSelected()
		if len(m.state.Results) > 0 {
			m.setFocus(ResultsField)
		}
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	// inputs are locked while a scan is in flight
	if m.state.Status == session.InFlight {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.scan):
		return m, m.startScan()
	case key.Matches(msg, m.keys.login):
		return m, m.signIn()
	case key.Matches(msg, m.keys.next):
		return m, m.setFocus((m.focus + 1) % 3)
	case key.Matches(msg, m.keys.prev):
		return m, m.setFocus((m.focus + 2) % 3)
	case key.Matches(msg, m.keys.enter) && m.focus == ImageField:
		return m, m.loadImage(m.image.Value())
	case key.Matches(msg, m.keys.enter) && m.focus == LinkField:
		return m, m.setFocus(ImageField)
	}

	return m.updateInputs(msg)
}

func (m *Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case LinkField:
		before := m.link.Value()
		m.link, cmd = m.link.Update(msg)
		if v := m.link.Value(); v != before {
			if st, err := m.controller.SetDriveLink(strings.TrimSpace(v)); err == nil {
				m.state = st
			}
		}
	case ImageField:
		m.image, cmd = m.image.Update(msg)
	case ResultsField:
		m.results, cmd = m.results.Update(msg)
	}
	return m, cmd
}

func (m *Model) setFocus(f Field) tea.Cmd {
	m.focus = f
	m.link.Blur()
	m.image.Blur()
	switch f {
	case LinkField:
		return m.link.Focus()
	case ImageField:
		return m.image.Focus()
	}
	return nil
}

func (m *Model) checkHealth() tea.Cmd {
	return func() tea.Msg {
		return healthCheckedMsg(m.controller.Probe(m.ctx))
	}
}

func (m *Model) loadImage(path string) tea.Cmd {
	path = strings.TrimSpace(path)
	return func() tea.Msg {
		f, err := images.FromPath(path)
		if err != nil {
			st, _ := m.controller.InputError(fmt.Sprintf("Could not read %s", path))
			return imageLoadedMsg(st, err)
		}
		st, err := m.controller.SetImage(f)
		return imageLoadedMsg(st, err)
	}
}

func (m *Model) signIn() tea.Cmd {
	if m.signingIn {
		return nil
	}
	if m.provider == nil {
		return func() tea.Msg {
			return loginFinishedMsg(auth.Credential{}, fmt.Errorf("%w: google client_id is not configured", shared.ErrMissingCredentials))
		}
	}

	m.signingIn = true
	m.notice = "Complete the Google sign-in in your browser..."
	return func() tea.Msg {
		cred, err := m.provider.Login(m.ctx)
		return loginFinishedMsg(cred, err)
	}
}

// startScan runs the trigger synchronously so the view flips to "Scanning..." before the request is sent.
func (m *Model) startScan() tea.Cmd {
	req, err := m.controller.Begin()
	m.state = m.controller.Snapshot()
	if err != nil {
		switch {
		case errors.Is(err, session.ErrBackendUnavailable), errors.Is(err, session.ErrScanInFlight):
			m.logger.Debug("scan trigger ignored", "err", err)
		default:
			m.logger.Debug("scan trigger rejected", "err", err)
		}
		return nil
	}

	m.results.SetItems(nil)
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return scanFinishedMsg(m.controller.Dispatch(m.ctx, req))
	})
}
