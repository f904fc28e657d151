package snapshot

import (
	"time"
)

// Status is the device's periodic health report. It is push-only and never
// cached.
type Status struct {
	Uptime     int64  `json:"uptime"`
	RSSI       int    `json:"rssi"`
	FreeHeap   int64  `json:"freeHeap"`
	APEnabled  *bool  `json:"ap_enabled,omitempty"`
	APIP       string `json:"ap_ip,omitempty"`
	APStations *int   `json:"ap_stations,omitempty"`
}

// UptimeDuration returns the uptime as a duration.
func (s Status) UptimeDuration() time.Duration {
	return time.Duration(s.Uptime) * time.Second
}

// AP extracts the access-point part of a status report, if present.
func (s Status) AP() (APStatus, bool) {
	if s.APEnabled == nil {
		return APStatus{}, false
	}
	ap := APStatus{Enabled: *s.APEnabled, IP: s.APIP}
	if s.APStations != nil {
		ap.Stations = *s.APStations
	}
	return ap, true
}

// APStatus describes the device's soft access point.
type APStatus struct {
	Enabled  bool   `json:"enabled"`
	IP       string `json:"ip,omitempty"`
	Stations int    `json:"stations"`
}

// PixelTestResult is the device's answer to a pixel-test request.
type PixelTestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
