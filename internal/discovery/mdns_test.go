package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestScanner_parseServiceEntry(t *testing.T) {
	scanner := NewScanner(DefaultPattern)

	tests := []struct {
		name         string
		entry        *zeroconf.ServiceEntry
		wantNil      bool
		wantName     string
		wantHostname string
		wantIP       string
		wantPort     int
	}{
		{
			name: "controller with IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "ESP32-2DMX"},
				HostName:      "ESP32-2DMX.local.",
				Port:          80,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.50")},
				Text:          []string{"path=/"},
			},
			wantName:     "ESP32-2DMX",
			wantHostname: "ESP32-2DMX.local",
			wantIP:       "192.168.1.50",
			wantPort:     80,
		},
		{
			name: "renamed instance matched by hostname",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "Stage left"},
				HostName:      "esp32-2dmx-a1b2.local",
				Port:          8080,
				AddrIPv4:      []net.IP{net.ParseIP("10.0.0.5")},
			},
			wantName:     "Stage left",
			wantHostname: "esp32-2dmx-a1b2.local",
			wantIP:       "10.0.0.5",
			wantPort:     8080,
		},
		{
			name: "no port defaults to 80",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "ESP32-2DMX"},
				HostName:      "ESP32-2DMX.local",
				AddrIPv4:      []net.IP{net.ParseIP("172.16.0.1")},
			},
			wantName:     "ESP32-2DMX",
			wantHostname: "ESP32-2DMX.local",
			wantIP:       "172.16.0.1",
			wantPort:     80,
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "ESP32-2DMX"},
				HostName:      "ESP32-2DMX.local",
				AddrIPv6:      []net.IP{net.ParseIP("fe80::1")},
			},
			wantName:     "ESP32-2DMX",
			wantHostname: "ESP32-2DMX.local",
			wantIP:       "fe80::1",
			wantPort:     80,
		},
		{
			name: "prefers IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "ESP32-2DMX"},
				HostName:      "ESP32-2DMX.local",
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.51")},
				AddrIPv6:      []net.IP{net.ParseIP("fe80::2")},
			},
			wantName:     "ESP32-2DMX",
			wantHostname: "ESP32-2DMX.local",
			wantIP:       "192.168.1.51",
			wantPort:     80,
		},
		{
			name: "other http service",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "Office printer"},
				HostName:      "printer.local",
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.1")},
			},
			wantNil: true,
		},
		{
			name: "no address",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "ESP32-2DMX"},
				HostName:      "ESP32-2DMX.local",
			},
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := scanner.parseServiceEntry(tt.entry)

			if tt.wantNil {
				if device != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", device)
				}
				return
			}
			if device == nil {
				t.Fatal("parseServiceEntry() = nil, want non-nil device")
			}
			if device.Name != tt.wantName {
				t.Errorf("device.Name = %v, want %v", device.Name, tt.wantName)
			}
			if device.Hostname != tt.wantHostname {
				t.Errorf("device.Hostname = %v, want %v", device.Hostname, tt.wantHostname)
			}
			if device.IP != tt.wantIP {
				t.Errorf("device.IP = %v, want %v", device.IP, tt.wantIP)
			}
			if device.Port != tt.wantPort {
				t.Errorf("device.Port = %v, want %v", device.Port, tt.wantPort)
			}
			if time.Since(device.DiscoveredAt) > time.Second {
				t.Errorf("device.DiscoveredAt is not recent: %v", device.DiscoveredAt)
			}
		})
	}
}

func TestScanner_parseServiceEntry_Metadata(t *testing.T) {
	scanner := NewScanner("")

	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: "anything"},
		HostName:      "anything.local",
		AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
		Text:          []string{"path=/", "fw=2.0.1", "flag", "a=b=c"},
	}

	device := scanner.parseServiceEntry(entry)
	if device == nil {
		t.Fatal("parseServiceEntry() = nil, want device")
	}

	expected := map[string]string{
		"path": "/",
		"fw":   "2.0.1",
		"flag": "",
		"a":    "b=c",
	}
	if len(device.Metadata) != len(expected) {
		t.Errorf("device.Metadata has %d entries, want %d", len(device.Metadata), len(expected))
	}
	for k, want := range expected {
		if got, ok := device.Metadata[k]; !ok || got != want {
			t.Errorf("device.Metadata[%q] = %q (present %v), want %q", k, got, ok, want)
		}
	}
}

func TestScanner_Matches(t *testing.T) {
	tests := []struct {
		pattern string
		names   []string
		want    bool
	}{
		{"ESP32-2DMX", []string{"ESP32-2DMX"}, true},
		{"ESP32-2DMX", []string{"", "esp32-2dmx.local"}, true},
		{"esp32", []string{"ESP32-2DMX-Stage"}, true},
		{"ESP32-2DMX", []string{"printer", "printer.local"}, false},
		{"ESP32-2DMX", []string{"", ""}, false},
		{"", []string{"printer"}, true},
	}

	for _, tt := range tests {
		s := NewScanner(tt.pattern)
		if got := s.Matches(tt.names...); got != tt.want {
			t.Errorf("Matches(%q) with pattern %q = %v, want %v", tt.names, tt.pattern, got, tt.want)
		}
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner(DefaultPattern)

	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
	if scanner.Pattern != DefaultPattern {
		t.Errorf("scanner.Pattern = %q, want %q", scanner.Pattern, DefaultPattern)
	}
}
