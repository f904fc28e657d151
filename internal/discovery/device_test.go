package discovery

import (
	"testing"
)

func TestDevice_String(t *testing.T) {
	device := &Device{
		Name:     "ESP32-2DMX",
		Hostname: "ESP32-2DMX.local",
		IP:       "192.168.1.50",
		Port:     80,
	}

	expected := "ESP32-2DMX (ESP32-2DMX.local) at 192.168.1.50"
	if device.String() != expected {
		t.Errorf("Device.String() = %v, want %v", device.String(), expected)
	}
}

func TestDevice_HostAndBaseURL(t *testing.T) {
	tests := []struct {
		name     string
		device   *Device
		wantHost string
		wantURL  string
	}{
		{
			name:     "standard HTTP port",
			device:   &Device{IP: "192.168.1.50", Port: 80},
			wantHost: "192.168.1.50",
			wantURL:  "http://192.168.1.50",
		},
		{
			name:     "custom port",
			device:   &Device{IP: "10.0.0.5", Port: 8080},
			wantHost: "10.0.0.5:8080",
			wantURL:  "http://10.0.0.5:8080",
		},
		{
			name:     "IPv6",
			device:   &Device{IP: "fe80::1", Port: 80},
			wantHost: "[fe80::1]",
			wantURL:  "http://[fe80::1]",
		},
		{
			name:     "IPv6 custom port",
			device:   &Device{IP: "fe80::1", Port: 8080},
			wantHost: "[fe80::1]:8080",
			wantURL:  "http://[fe80::1]:8080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.device.Host(); got != tt.wantHost {
				t.Errorf("Device.Host() = %v, want %v", got, tt.wantHost)
			}
			if got := tt.device.BaseURL(); got != tt.wantURL {
				t.Errorf("Device.BaseURL() = %v, want %v", got, tt.wantURL)
			}
		})
	}
}

func TestDevice_GetMetadata(t *testing.T) {
	device := &Device{
		Metadata: map[string]string{
			"path": "/",
			"fw":   "2.0.1",
		},
	}

	tests := []struct {
		key      string
		expected string
	}{
		{"path", "/"},
		{"fw", "2.0.1"},
		{"missing", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := device.GetMetadata(tt.key); got != tt.expected {
				t.Errorf("Device.GetMetadata(%v) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}

	var empty Device
	if got := empty.GetMetadata("anything"); got != "" {
		t.Errorf("Device.GetMetadata() with nil map = %v, want empty string", got)
	}
}
