package version

import (
	"strings"
	"testing"
)

func TestShortRevision(t *testing.T) {
	tests := []struct {
		rev   string
		dirty bool
		want  string
	}{
		{"0123456789abcdef", false, "0123456"},
		{"0123456789abcdef", true, "0123456-dirty"},
		{"abc", false, "abc"},
	}
	for _, tt := range tests {
		if got := shortRevision(tt.rev, tt.dirty); got != tt.want {
			t.Errorf("shortRevision(%q, %v) = %q, want %q", tt.rev, tt.dirty, got, tt.want)
		}
	}
}

func TestFullAndUserAgent(t *testing.T) {
	if Version == "" || Commit == "" {
		t.Fatal("Version and Commit must be populated by init")
	}
	if !strings.Contains(Full(), Commit) {
		t.Errorf("Full() = %q, should contain commit %q", Full(), Commit)
	}
	if !strings.HasPrefix(UserAgent(), "dmxsync/") {
		t.Errorf("UserAgent() = %q", UserAgent())
	}
}
