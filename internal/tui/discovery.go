package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/dmxsync/internal/discovery"
)

// Messages for async operations
type scanStartMsg struct{}
type scanCompleteMsg struct {
	devices []*discovery.Device
	err     error
}

// discoveryKeyMap defines key bindings for the device list
type discoveryKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Rescan key.Binding
	Manual key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k discoveryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Rescan, k.Manual, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k discoveryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter},
		{k.Rescan, k.Manual, k.Quit},
	}
}

// manualModeKeyMap defines key bindings for manual host entry
type manualModeKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

func (m manualModeKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{m.Confirm, m.Cancel}
}

func (m manualModeKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{m.Confirm, m.Cancel}}
}

// deviceItem wraps a Device for use with bubbles/list
type deviceItem struct {
	device *discovery.Device
}

func (d deviceItem) FilterValue() string {
	return d.device.Name + " " + d.device.IP + " " + d.device.Hostname
}

func (d deviceItem) Title() string {
	if d.device.Name == "" {
		return d.device.Host()
	}
	return d.device.Name
}

func (d deviceItem) Description() string {
	return d.device.Host()
}

// deviceDelegate renders each device as a small card
type deviceDelegate struct {
	width int
}

func (d deviceDelegate) Height() int { return 5 }

func (d deviceDelegate) Spacing() int { return 1 }

func (d deviceDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d deviceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	di, ok := item.(deviceItem)
	if !ok {
		return
	}
	device := di.device
	selected := index == m.Index()

	var content strings.Builder
	if selected {
		content.WriteString(SelectedMenuItemStyle.Render("→ " + di.Title()))
	} else {
		content.WriteString("  " + di.Title())
	}
	content.WriteString("\n")
	content.WriteString(fmt.Sprintf("  Host:     %s\n", device.Host()))
	if device.Hostname != "" {
		content.WriteString(fmt.Sprintf("  mDNS:     %s", device.Hostname))
	}

	cardWidth := d.width - 6
	if cardWidth < MinTerminalWidth-6 {
		cardWidth = MinTerminalWidth - 6
	}
	if cardWidth > MaxContentWidth-6 {
		cardWidth = MaxContentWidth - 6
	}

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 2).
		MarginLeft(2).
		Width(cardWidth)
	if selected {
		cardStyle = cardStyle.BorderForeground(HighlightColor)
	}

	fmt.Fprint(w, cardStyle.Render(content.String()))
}

// DiscoveryModel is the device picker shown when no host is configured
type DiscoveryModel struct {
	Scanning   bool
	DeviceList list.Model
	Selected   string
	Err        error

	ManualMode bool
	HostInput  textinput.Model

	Width         int
	Height        int
	Spinner       spinner.Model
	ScanStartTime time.Time
	Help          help.Model
	Keys          discoveryKeyMap
	ManualKeys    manualModeKeyMap

	scanner *discovery.Scanner
	ctx     context.Context
}

// NewDiscoveryModel creates a picker that scans with scanner.
func NewDiscoveryModel(ctx context.Context, scanner *discovery.Scanner) DiscoveryModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	hostInput := textinput.New()
	hostInput.Placeholder = "192.168.1.50"
	hostInput.CharLimit = 253
	hostInput.Width = 40

	deviceList := list.New([]list.Item{}, deviceDelegate{width: MinTerminalWidth}, 0, 0)
	deviceList.Title = "Controllers"
	deviceList.SetShowStatusBar(false)
	deviceList.SetShowHelp(false)
	deviceList.SetFilteringEnabled(false)
	deviceList.Styles.Title = SectionTitleStyle

	keys := discoveryKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
		Manual: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "enter host"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}

	manualKeys := manualModeKeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "connect"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}

	return DiscoveryModel{
		DeviceList: deviceList,
		HostInput:  hostInput,
		Spinner:    s,
		Help:       help.New(),
		Keys:       keys,
		ManualKeys: manualKeys,
		scanner:    scanner,
		ctx:        ctx,
	}
}

// Init starts scanning immediately
func (m DiscoveryModel) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return scanStartMsg{} },
		m.scan(),
		m.Spinner.Tick,
	)
}

func (m DiscoveryModel) scan() tea.Cmd {
	scanner, ctx := m.scanner, m.ctx
	return func() tea.Msg {
		devices, err := scanner.Scan(ctx)
		return scanCompleteMsg{devices: devices, err: err}
	}
}

// Update handles messages and updates the model
func (m DiscoveryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.ManualMode {
			return m.updateManualMode(msg)
		}
		return m.updateNormalMode(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.DeviceList.SetDelegate(deviceDelegate{width: msg.Width})
		m.DeviceList.SetWidth(msg.Width - 4)
		m.DeviceList.SetHeight(msg.Height - 10)

	case scanStartMsg:
		m.Scanning = true
		m.ScanStartTime = time.Now()

	case scanCompleteMsg:
		m.Scanning = false
		m.Err = msg.err
		items := make([]list.Item, len(msg.devices))
		for i, dev := range msg.devices {
			items[i] = deviceItem{device: dev}
		}
		m.DeviceList.SetItems(items)

	case spinner.TickMsg:
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// updateNormalMode handles keyboard input in the device list
func (m DiscoveryModel) updateNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Enter):
		if item, ok := m.DeviceList.SelectedItem().(deviceItem); ok {
			m.Selected = item.device.Host()
		}
		return m, nil

	case key.Matches(msg, m.Keys.Rescan):
		if m.Scanning {
			return m, nil
		}
		m.DeviceList.SetItems([]list.Item{})
		m.Err = nil
		return m, tea.Batch(
			func() tea.Msg { return scanStartMsg{} },
			m.scan(),
			m.Spinner.Tick,
		)

	case key.Matches(msg, m.Keys.Manual):
		m.ManualMode = true
		m.HostInput.SetValue("")
		return m, m.HostInput.Focus()
	}

	var cmd tea.Cmd
	m.DeviceList, cmd = m.DeviceList.Update(msg)
	return m, cmd
}

// updateManualMode handles keyboard input while typing a host
func (m DiscoveryModel) updateManualMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.ManualKeys.Cancel):
		m.ManualMode = false
		m.HostInput.Blur()
		return m, nil

	case key.Matches(msg, m.ManualKeys.Confirm):
		if host := strings.TrimSpace(m.HostInput.Value()); host != "" {
			m.ManualMode = false
			m.HostInput.Blur()
			m.Selected = host
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.HostInput, cmd = m.HostInput.Update(msg)
	return m, cmd
}

// View renders the discovery screen
func (m DiscoveryModel) View() string {
	var content, helpText string
	switch {
	case m.ManualMode:
		content = m.renderManualEntry()
		helpText = m.Help.View(m.ManualKeys)
	case m.Scanning:
		content = m.renderScanning()
		helpText = m.Help.View(m.Keys)
	default:
		content = m.renderDeviceResults()
		helpText = m.Help.View(m.Keys)
	}
	return RenderApplicationContainer(content, "", helpText, m.Width, m.Height)
}

func (m DiscoveryModel) renderScanning() string {
	elapsed := time.Since(m.ScanStartTime).Round(time.Second)
	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		TitleStyle.Render(m.Spinner.View()+" SEARCHING FOR CONTROLLERS"),
		SubtitleStyle.Render(fmt.Sprintf("Browsing %s for %q (%s)", discovery.ServiceType, m.scanner.Pattern, elapsed)),
	)
	width := m.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	return lipgloss.Place(width-4, 0, lipgloss.Center, lipgloss.Top, content)
}

// renderDeviceResults renders the device list or the empty/error state
func (m DiscoveryModel) renderDeviceResults() string {
	var b strings.Builder
	b.WriteString("\n")

	switch {
	case m.Err != nil:
		b.WriteString(RenderError(fmt.Sprintf("Scan failed: %v", m.Err)))
		b.WriteString("\n\n")
		b.WriteString(troubleshooting)

	case len(m.DeviceList.Items()) == 0:
		warningStyle := lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
		b.WriteString("  ")
		b.WriteString(warningStyle.Render("⚠ No controllers found on your network"))
		b.WriteString("\n\n")
		b.WriteString(troubleshooting)

	default:
		b.WriteString(m.DeviceList.View())
	}
	return b.String()
}

const troubleshooting = `  Troubleshooting:
    • Ensure the controller is powered and joined to this network
    • Multicast (UDP 5353) must not be blocked
    • When on the controller's own access point, press m and enter 192.168.4.1
`

func (m DiscoveryModel) renderManualEntry() string {
	var b strings.Builder
	b.WriteString(RenderSubtitle("Enter the controller's address"))
	b.WriteString("\n\n")
	b.WriteString("  Host: ")
	b.WriteString(m.HostInput.View())
	b.WriteString("\n")
	return b.String()
}
