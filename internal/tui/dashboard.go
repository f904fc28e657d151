package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/dmxsync/internal/config"
	"github.com/muurk/dmxsync/internal/configsync"
	"github.com/muurk/dmxsync/internal/snapshot"
)

// Message types for async operations
type loadedMsg struct{ err error }

type submitDoneMsg struct {
	form snapshot.Form
	err  error
}

type commandDoneMsg struct{ err error }

type refreshDoneMsg struct{ err error }

type tickMsg time.Time

// maxPixelMode is the highest test pattern the firmware accepts.
const maxPixelMode = 9

type rowKind int

const (
	rowField rowKind = iota
	rowSubmit
	rowPixelTest
	rowReboot
	rowFactoryReset
)

// row is one selectable line of the dashboard.
type row struct {
	kind  rowKind
	form  snapshot.Form
	field snapshot.Field
}

// section groups rows under a title; actions have an empty form.
func (r row) section() string {
	return string(r.form)
}

// staticIPGroup lists the fields hidden with GroupStaticIP.
var staticIPGroup = map[string]bool{
	"staticIP":      true,
	"staticMask":    true,
	"staticGateway": true,
}

// dashboardKeyMap defines key bindings for the dashboard screen
type dashboardKeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Tab       key.Binding
	Enter     key.Binding
	Toggle    key.Binding
	Submit    key.Binding
	Left      key.Binding
	Right     key.Binding
	PixelTest key.Binding
	Refresh   key.Binding
	Reconnect key.Binding
	Back      key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k dashboardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Enter, k.Submit, k.Refresh, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k dashboardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Tab, k.Enter, k.Toggle},
		{k.Submit, k.Left, k.Right, k.PixelTest},
		{k.Refresh, k.Reconnect, k.Back, k.Help, k.Quit},
	}
}

// editKeyMap is active while a text field has focus
type editKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

func (k editKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

func (k editKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Confirm, k.Cancel}}
}

// DashboardModel shows every form of one device and keeps it in sync.
// Widget state lives in the session's Bridge; the model only tracks
// navigation and the field being typed into.
type DashboardModel struct {
	Session *Session
	ctx     context.Context

	// UI state
	Width  int
	Height int
	Now    time.Time

	// Navigation
	Cursor      int
	ShowingHelp bool

	// Inline editing state
	Editing      bool
	editKey      string
	editOriginal snapshot.Value
	Input        textinput.Model

	PixelMode    int
	ConfirmReset bool
	Loading      bool
	Busy         string // command in flight, e.g. "Rebooting"

	NoticeTimeout time.Duration
	BackRequested bool

	Spinner  spinner.Model
	Help     help.Model
	Keys     dashboardKeyMap
	EditKeys editKeyMap
}

// NewDashboardModel creates a dashboard for a started session.
func NewDashboardModel(ctx context.Context, sess *Session, noticeTimeout time.Duration) DashboardModel {
	if noticeTimeout <= 0 {
		noticeTimeout = config.DefaultNotificationTimeout
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	input := textinput.New()
	input.CharLimit = 64
	input.Width = 40
	input.EchoCharacter = '•'

	keys := dashboardKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next section"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "edit/apply"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle"),
		),
		Submit: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "save section"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "prev pattern"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next pattern"),
		),
		PixelTest: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pixel test"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Reconnect: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "reconnect"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "devices"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}

	editKeys := editKeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "done"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}

	return DashboardModel{
		Session:       sess,
		ctx:           ctx,
		Now:           time.Now(),
		Input:         input,
		Loading:       true,
		NoticeTimeout: noticeTimeout,
		Spinner:       s,
		Help:          help.New(),
		Keys:          keys,
		EditKeys:      editKeys,
	}
}

// Init paints the cached configuration and starts the first refresh
func (m DashboardModel) Init() tea.Cmd {
	sync := m.Session.Sync
	ctx := m.ctx
	return tea.Batch(
		func() tea.Msg { return loadedMsg{err: sync.LoadInitial(ctx)} },
		m.Session.Bridge.Wait(ctx),
		tick(),
		m.Spinner.Tick,
	)
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles messages and updates the model
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case tea.FocusMsg:
		m.Session.Sync.SetVisible(true)
		return m, nil

	case tea.BlurMsg:
		m.Session.Sync.SetVisible(false)
		return m, nil

	case viewChangedMsg:
		m.clampCursor()
		return m, m.Session.Bridge.Wait(m.ctx)

	case loadedMsg:
		m.Loading = false
		return m, nil

	case refreshDoneMsg, submitDoneMsg:
		// outcome arrives as a notice through the bridge
		return m, nil

	case commandDoneMsg:
		m.Busy = ""
		return m, nil

	case tickMsg:
		m.Now = time.Time(msg)
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.ShowingHelp {
			m.ShowingHelp = false
			return m, nil
		}
		if m.Editing {
			return m.updateEditor(msg)
		}
		return m.updateNormalMode(msg)
	}

	return m, nil
}

// updateNormalMode handles input when no field is being edited
func (m DashboardModel) updateNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.rows()
	current := rows[m.Cursor]

	// Any key other than a second enter on the reset row disarms it.
	if !(current.kind == rowFactoryReset && key.Matches(msg, m.Keys.Enter)) {
		m.ConfirmReset = false
	}

	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Help):
		m.ShowingHelp = true

	case key.Matches(msg, m.Keys.Back):
		m.BackRequested = true

	case key.Matches(msg, m.Keys.Up):
		if m.Cursor > 0 {
			m.Cursor--
		}

	case key.Matches(msg, m.Keys.Down):
		if m.Cursor < len(rows)-1 {
			m.Cursor++
		}

	case key.Matches(msg, m.Keys.Tab):
		m.Cursor = nextSection(rows, m.Cursor)

	case key.Matches(msg, m.Keys.Toggle):
		if current.kind == rowField && current.field.Kind == snapshot.KindBool {
			m.toggle(current.field)
		}

	case key.Matches(msg, m.Keys.Enter):
		return m.activate(current)

	case key.Matches(msg, m.Keys.Submit):
		if current.form != "" {
			return m, m.submit(current.form)
		}

	case key.Matches(msg, m.Keys.Left):
		if current.kind == rowPixelTest && m.PixelMode > 0 {
			m.PixelMode--
		}

	case key.Matches(msg, m.Keys.Right):
		if current.kind == rowPixelTest && m.PixelMode < maxPixelMode {
			m.PixelMode++
		}

	case key.Matches(msg, m.Keys.PixelTest):
		m.pixelTest()

	case key.Matches(msg, m.Keys.Refresh):
		sync, ctx := m.Session.Sync, m.ctx
		return m, func() tea.Msg { return refreshDoneMsg{err: sync.Refresh(ctx)} }

	case key.Matches(msg, m.Keys.Reconnect):
		if m.Session.Push != nil {
			m.Session.Push.Restart()
		}
	}

	return m, nil
}

// activate handles enter on the selected row
func (m DashboardModel) activate(r row) (tea.Model, tea.Cmd) {
	switch r.kind {
	case rowField:
		if !m.Session.Bridge.FormEnabled(r.form) {
			return m, nil
		}
		if r.field.Kind == snapshot.KindBool {
			m.toggle(r.field)
			return m, nil
		}
		return m.startEditing(r.field)

	case rowSubmit:
		return m, m.submit(r.form)

	case rowPixelTest:
		m.pixelTest()

	case rowReboot:
		return m.command("Rebooting", m.Session.Sync.Reboot)

	case rowFactoryReset:
		if !m.ConfirmReset {
			m.ConfirmReset = true
			return m, nil
		}
		m.ConfirmReset = false
		return m.command("Resetting", m.Session.Sync.FactoryReset)
	}
	return m, nil
}

func (m *DashboardModel) toggle(f snapshot.Field) {
	b := m.Session.Bridge
	if !b.FormEnabled(f.Form) {
		return
	}
	v, _ := b.Field(f.Key)
	b.Edit(f.Key, snapshot.Bool(!v.Bool()))
	m.Session.Sync.FieldChanged(f.Key)
	m.clampCursor()
}

// startEditing focuses the text input on f. While focused, incoming
// snapshots leave the field alone.
func (m DashboardModel) startEditing(f snapshot.Field) (tea.Model, tea.Cmd) {
	b := m.Session.Bridge
	v, _ := b.Field(f.Key)

	m.Editing = true
	m.editKey = f.Key
	m.editOriginal = v
	m.Input.SetValue(v.String())
	m.Input.CursorEnd()
	if f.Secret {
		m.Input.EchoMode = textinput.EchoPassword
	} else {
		m.Input.EchoMode = textinput.EchoNormal
	}
	b.Focus(f.Key)
	return m, m.Input.Focus()
}

// updateEditor handles input while a text field has focus
func (m DashboardModel) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.EditKeys.Confirm):
		m.finishEditing(true)
		return m, nil

	case key.Matches(msg, m.EditKeys.Cancel):
		m.finishEditing(false)
		return m, nil

	case msg.String() == "ctrl+c":
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	m.Session.Bridge.Edit(m.editKey, snapshot.String(m.Input.Value()))
	return m, cmd
}

// finishEditing releases focus. Cancelling puts back the value shown
// before editing started.
func (m *DashboardModel) finishEditing(keep bool) {
	b := m.Session.Bridge
	if keep {
		b.Edit(m.editKey, snapshot.String(m.Input.Value()))
	} else {
		b.Edit(m.editKey, m.editOriginal)
	}
	b.Focus("")
	m.Input.Blur()
	m.Session.Sync.FieldChanged(m.editKey)
	m.Editing = false
	m.editKey = ""
}

func (m DashboardModel) submit(form snapshot.Form) tea.Cmd {
	if !m.Session.Bridge.FormEnabled(form) {
		return nil
	}
	sync, ctx := m.Session.Sync, m.ctx
	return func() tea.Msg {
		return submitDoneMsg{form: form, err: sync.SubmitForm(ctx, form)}
	}
}

func (m DashboardModel) command(busy string, run func(context.Context) error) (tea.Model, tea.Cmd) {
	if m.Busy != "" {
		return m, nil
	}
	m.Busy = busy
	ctx := m.ctx
	return m, func() tea.Msg { return commandDoneMsg{err: run(ctx)} }
}

func (m *DashboardModel) pixelTest() {
	if !m.Session.Sync.PixelTest(m.PixelMode) {
		m.Session.Bridge.Notify(configsync.Notice{
			Level:   configsync.LevelError,
			Message: "Pixel test not sent: push channel offline",
			At:      time.Now(),
		})
	}
}

// rows lists the selectable lines in display order, honouring group
// visibility.
func (m DashboardModel) rows() []row {
	b := m.Session.Bridge
	staticVisible := b.GroupVisible(configsync.GroupStaticIP)

	var rows []row
	for _, form := range snapshot.Forms {
		for _, f := range snapshot.FormFields(form) {
			if staticIPGroup[f.Key] && !staticVisible {
				continue
			}
			rows = append(rows, row{kind: rowField, form: form, field: f})
		}
		rows = append(rows, row{kind: rowSubmit, form: form})
	}
	return append(rows,
		row{kind: rowPixelTest},
		row{kind: rowReboot},
		row{kind: rowFactoryReset},
	)
}

func (m *DashboardModel) clampCursor() {
	if n := len(m.rows()); m.Cursor >= n {
		m.Cursor = n - 1
	}
}

// nextSection returns the index of the first row of the following section,
// wrapping to the top.
func nextSection(rows []row, cursor int) int {
	cur := rows[cursor].section()
	for i := cursor + 1; i < len(rows); i++ {
		if rows[i].section() != cur {
			return i
		}
	}
	return 0
}

// visibleNotices returns the notices younger than the timeout, newest last.
func (m DashboardModel) visibleNotices() []configsync.Notice {
	var out []configsync.Notice
	for _, n := range m.Session.Bridge.Notices() {
		if m.Now.Sub(n.At) < m.NoticeTimeout {
			out = append(out, n)
		}
	}
	if len(out) > 3 {
		out = out[len(out)-3:]
	}
	return out
}

// IsBackRequested reports whether the user asked for the device list
func (m DashboardModel) IsBackRequested() bool {
	return m.BackRequested
}

// View renders the dashboard
func (m DashboardModel) View() string {
	label, connected := m.Session.connectionLabel()
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Foreground(TextColor).Render(m.Session.Host),
		"  ",
		renderConnection(label, connected),
	)

	var helpText string
	if m.Editing {
		helpText = m.Help.View(m.EditKeys)
	} else {
		helpText = m.Help.View(m.Keys)
	}

	if m.ShowingHelp {
		h := m.Help
		h.ShowAll = true
		box := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(1, 2).
			Render(lipgloss.JoinVertical(lipgloss.Left, SectionTitleStyle.Render("Keys"), "", h.View(m.Keys)))
		return RenderModal(box, m.Width, m.Height)
	}

	top := m.renderTop()
	lines, cursorLine := m.renderRows()

	// header, footer and borders take six lines
	avail := m.Height - 6 - lipgloss.Height(top)
	body := strings.Join(window(lines, cursorLine, avail), "\n")

	return RenderApplicationContainer(
		lipgloss.JoinVertical(lipgloss.Left, top, body),
		header, helpText, m.Width, m.Height,
	)
}

// renderTop renders the status panel and the live notices
func (m DashboardModel) renderTop() string {
	b := m.Session.Bridge
	parts := []string{m.renderStatus()}

	if m.Loading {
		parts = append(parts, m.Spinner.View()+" Loading configuration...")
	}
	if m.Busy != "" {
		parts = append(parts, m.Spinner.View()+" "+m.Busy+"...")
	}
	for _, n := range m.visibleNotices() {
		parts = append(parts, noticeStyles[n.Level.String()].Render(n.Message))
	}
	if !b.Connected() && m.Session.Push != nil {
		parts = append(parts, DisabledStyle.Render("Live updates paused, polling while visible"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m DashboardModel) renderStatus() string {
	b := m.Session.Bridge
	st, ok := b.Status()
	if !ok {
		return StatusPanelStyle.Render(DisabledStyle.Render("Waiting for status..."))
	}

	line := fmt.Sprintf("Uptime %s • RSSI %d dBm • Free heap %d KB",
		st.UptimeDuration().String(), st.RSSI, st.FreeHeap/1024)

	if b.GroupVisible(configsync.GroupAPStatus) {
		if ap, ok := b.APStatus(); ok && ap.Enabled {
			line += fmt.Sprintf(" • AP %s (%d stations)", ap.IP, ap.Stations)
		}
	}
	return StatusPanelStyle.Render(line)
}

// renderRows renders every section and returns the index of the line
// holding the cursor.
func (m DashboardModel) renderRows() ([]string, int) {
	rows := m.rows()
	var lines []string
	cursorLine := 0
	section := "-"

	for i, r := range rows {
		if r.section() != section {
			section = r.section()
			if len(lines) > 0 {
				lines = append(lines, "")
			}
			title := "Device"
			if r.form != "" {
				title = r.form.Label()
			}
			lines = append(lines, SectionTitleStyle.Render(title))
		}
		if i == m.Cursor {
			cursorLine = len(lines)
		}
		lines = append(lines, m.renderRow(r, i == m.Cursor))
	}
	return lines, cursorLine
}

func (m DashboardModel) renderRow(r row, selected bool) string {
	arrow := "  "
	labelStyle := lipgloss.NewStyle().Width(labelWidth).Foreground(SubtleColor)
	valueStyle := lipgloss.NewStyle()
	if selected {
		arrow = "→ "
		labelStyle = labelStyle.Foreground(HighlightColor).Bold(true)
		valueStyle = valueStyle.Foreground(HighlightColor).Bold(true)
	}

	switch r.kind {
	case rowField:
		enabled := m.Session.Bridge.FormEnabled(r.form)
		if !enabled {
			valueStyle = DisabledStyle
		}
		value := m.renderValue(r.field)
		if m.Editing && m.editKey == r.field.Key {
			value = InlineEditorStyle().Render(m.Input.View())
		}
		return lipgloss.JoinHorizontal(lipgloss.Left, arrow, labelStyle.Render(r.field.Label), valueStyle.Render(value))

	case rowSubmit:
		text := "[ Save " + r.form.Label() + " ]"
		if !m.Session.Bridge.FormEnabled(r.form) {
			text = m.Spinner.View() + " Saving..."
		}
		return arrow + renderButton(text, selected)

	case rowPixelTest:
		value := fmt.Sprintf("‹ %d ›", m.PixelMode)
		return lipgloss.JoinHorizontal(lipgloss.Left, arrow, labelStyle.Render("Pixel test"), valueStyle.Render(value))

	case rowReboot:
		return arrow + renderButton("[ Reboot ]", selected)

	case rowFactoryReset:
		if m.ConfirmReset {
			warn := lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
			return arrow + warn.Render("⚠ Press enter again to erase all settings")
		}
		return arrow + renderButton("[ Factory reset ]", selected)
	}
	return ""
}

// renderValue formats a widget value for display
func (m DashboardModel) renderValue(f snapshot.Field) string {
	v, ok := m.Session.Bridge.Field(f.Key)
	if !ok {
		return ""
	}
	switch {
	case f.Kind == snapshot.KindBool:
		if v.Bool() {
			return "[x] on"
		}
		return "[ ] off"
	case f.Secret:
		if v.String() == "" {
			return DisabledStyle.Render("(unchanged)")
		}
		return strings.Repeat("•", len(v.String()))
	}
	return v.String()
}

func renderButton(text string, selected bool) string {
	style := lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true)
	if selected {
		style = style.Background(PrimaryColor).Foreground(BackgroundColor)
	}
	return style.Render(text)
}

// window returns at most height lines of lines, scrolled so that the
// cursor line is visible.
func window(lines []string, cursor, height int) []string {
	if height <= 0 || len(lines) <= height {
		return lines
	}
	start := cursor - height/2
	if start < 0 {
		start = 0
	}
	if start+height > len(lines) {
		start = len(lines) - height
	}
	return lines[start : start+height]
}
