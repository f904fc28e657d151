// Package configsync keeps a view of the device's configuration consistent
// with the device itself.
//
// A Synchronizer combines three sources: a full fetch (on start, every poll
// interval while visible, and shortly after each submit), pushed config
// messages, and the user's own submits. All of them funnel through the same
// reconciliation step, which updates the view field by field, never touches
// the field the user is editing, and never blanks a field the source did not
// mention. The last good snapshot is cached so the view can start from it
// when the device is unreachable.
//
// The View interface is the binding to widgets. MemoryView is a headless
// implementation; the TUI supplies its own.
package configsync
