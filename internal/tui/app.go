package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/dmxsync/internal/discovery"
	"github.com/muurk/dmxsync/internal/logging"
	"go.uber.org/zap"
)

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenDiscovery  Screen = "discovery"
	ScreenConnecting Screen = "connecting"
	ScreenDashboard  Screen = "dashboard"
)

type sessionReadyMsg struct{ session *Session }

type connectFailedMsg struct {
	host string
	err  error
}

// Options configures the application.
type Options struct {
	// Host opens the dashboard directly; empty starts with discovery.
	Host string

	Scanner             *discovery.Scanner
	NotificationTimeout time.Duration
}

// AppModel switches between the device picker and the dashboard
type AppModel struct {
	CurrentScreen Screen

	DiscoveryModel DiscoveryModel
	DashboardModel DashboardModel

	Session   *Session
	Host      string
	LastError error

	Width  int
	Height int

	ctx     context.Context
	connect Connector
	opts    Options
}

// NewAppModel creates the application model
func NewAppModel(ctx context.Context, connect Connector, opts Options) AppModel {
	if opts.Scanner == nil {
		opts.Scanner = discovery.NewScanner(discovery.DefaultPattern)
	}
	m := AppModel{
		ctx:     ctx,
		connect: connect,
		opts:    opts,
		Host:    opts.Host,
	}
	if opts.Host != "" {
		m.CurrentScreen = ScreenConnecting
	} else {
		m.CurrentScreen = ScreenDiscovery
		m.DiscoveryModel = NewDiscoveryModel(ctx, opts.Scanner)
	}
	return m
}

// Init initializes the application
func (m AppModel) Init() tea.Cmd {
	switch m.CurrentScreen {
	case ScreenConnecting:
		return m.connectCmd(m.Host)
	case ScreenDiscovery:
		return m.DiscoveryModel.Init()
	}
	return nil
}

func (m AppModel) connectCmd(host string) tea.Cmd {
	connect := m.connect
	return func() tea.Msg {
		sess, err := connect(host)
		if err != nil {
			return connectFailedMsg{host: host, err: err}
		}
		return sessionReadyMsg{session: sess}
	}
}

// Update handles all messages and routes them to the appropriate screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.DashboardModel.Width = msg.Width
		m.DashboardModel.Height = msg.Height
		if m.CurrentScreen == ScreenDiscovery {
			updated, _ := m.DiscoveryModel.Update(msg)
			m.DiscoveryModel = updated.(DiscoveryModel)
		}
		return m, nil

	case sessionReadyMsg:
		logging.Info("Opening dashboard", zap.String("host", msg.session.Host))
		m.Session = msg.session
		m.Session.Start(m.ctx)
		m.DashboardModel = NewDashboardModel(m.Session.Context(), m.Session, m.opts.NotificationTimeout)
		m.DashboardModel.Width = m.Width
		m.DashboardModel.Height = m.Height
		m.CurrentScreen = ScreenDashboard
		m.LastError = nil
		return m, m.DashboardModel.Init()

	case connectFailedMsg:
		logging.Warn("Connect failed", zap.String("host", msg.host), zap.Error(msg.err))
		m.LastError = msg.err
		return m.toDiscovery()
	}

	switch m.CurrentScreen {
	case ScreenDiscovery:
		updated, cmd := m.DiscoveryModel.Update(msg)
		m.DiscoveryModel = updated.(DiscoveryModel)
		if host := m.DiscoveryModel.Selected; host != "" {
			m.DiscoveryModel.Selected = ""
			m.Host = host
			m.CurrentScreen = ScreenConnecting
			return m, m.connectCmd(host)
		}
		return m, cmd

	case ScreenDashboard:
		updated, cmd := m.DashboardModel.Update(msg)
		m.DashboardModel = updated.(DashboardModel)
		if m.DashboardModel.IsBackRequested() {
			m.Session.Stop()
			m.Session = nil
			return m.toDiscovery()
		}
		return m, cmd

	case ScreenConnecting:
		if k, ok := msg.(tea.KeyMsg); ok && (k.String() == "ctrl+c" || k.String() == "q") {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m AppModel) toDiscovery() (tea.Model, tea.Cmd) {
	m.CurrentScreen = ScreenDiscovery
	m.DiscoveryModel = NewDiscoveryModel(m.ctx, m.opts.Scanner)
	m.DiscoveryModel.Width = m.Width
	m.DiscoveryModel.Height = m.Height
	if m.LastError != nil {
		m.DiscoveryModel.Err = fmt.Errorf("%s: %w", m.Host, m.LastError)
	}
	return m, m.DiscoveryModel.Init()
}

// View renders the current screen
func (m AppModel) View() string {
	switch m.CurrentScreen {
	case ScreenDiscovery:
		return m.DiscoveryModel.View()
	case ScreenDashboard:
		return m.DashboardModel.View()
	default:
		content := lipgloss.JoinVertical(lipgloss.Left,
			"",
			RenderSubtitle("Connecting to "+m.Host+"..."),
		)
		return RenderApplicationContainer(content, m.Host, "q quit", m.Width, m.Height)
	}
}

// Run starts the full-screen program and blocks until the user quits.
// Terminal focus reports drive the synchronizer's visibility.
func Run(ctx context.Context, connect Connector, opts Options) error {
	p := tea.NewProgram(
		NewAppModel(ctx, connect, opts),
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithContext(ctx),
	)
	final, err := p.Run()
	if am, ok := final.(AppModel); ok && am.Session != nil {
		am.Session.Stop()
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
