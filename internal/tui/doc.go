// Package tui is the full-screen dashboard for a DMX controller.
//
// It follows the Elm architecture of Bubble Tea. AppModel moves between two
// screens:
//   - Discovery: browse mDNS for controllers or type a host
//   - Dashboard: every settings form, a live status panel and device actions
//
// All screens render through RenderApplicationContainer, which draws the
// header, content and context help footer.
//
// # Binding to the synchronizer
//
// The dashboard never owns configuration state. A Bridge implements
// configsync.View on top of a configsync.MemoryView; the synchronizer writes
// into it from its own goroutines and the Bridge wakes the program through a
// single-slot channel, so bursts of writes cost one render. The field being
// typed into is reported as the view's focused field, which keeps polls and
// pushes from overwriting it.
//
// Terminal focus reports (tea.WithReportFocus) stand in for page visibility:
// losing focus pauses polling and regaining it refreshes at once.
//
// # Components
//
//   - bubbles/textinput: inline field editing, masked for secrets
//   - bubbles/list: discovered controllers
//   - bubbles/spinner: loading, saving and command progress
//   - bubbles/help and bubbles/key: key bindings and the help overlay
//   - lipgloss: styling and layout
package tui
