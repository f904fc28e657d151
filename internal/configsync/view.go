package configsync

import (
	"fmt"
	"time"

	"github.com/muurk/dmxsync/internal/snapshot"
)

// Group is a block of widgets shown or hidden as a unit.
type Group string

const (
	// GroupStaticIP holds the static address fields; hidden while DHCP is on.
	GroupStaticIP Group = "static-ip-settings"

	// GroupAPStatus shows the access point address and station count.
	GroupAPStatus Group = "ap-status"
)

// Level is the severity of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("Level(%d)", l)
	}
}

// Notice is a transient message for the user.
type Notice struct {
	Level   Level
	Message string
	At      time.Time
}

// View is the UI field binding. The synchronizer calls it with its lock
// held, so implementations must not call back into the synchronizer
// synchronously.
type View interface {
	// SetField writes a coerced value into the widget bound to f.
	SetField(f snapshot.Field, v snapshot.Value)

	// Field reads the widget's current value, including unsubmitted edits.
	Field(key string) (snapshot.Value, bool)

	// Focused returns the key of the field receiving input, or "".
	Focused() string

	SetFormEnabled(form snapshot.Form, enabled bool)
	SetGroupVisible(g Group, visible bool)
	Notify(n Notice)
	SetConnected(connected bool)
	ShowStatus(s snapshot.Status)
	ShowAPStatus(a snapshot.APStatus)
}
