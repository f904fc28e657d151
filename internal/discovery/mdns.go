package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/muurk/dmxsync/internal/logging"
	"go.uber.org/zap"
)

const (
	// ServiceType is the mDNS service type the controller advertises
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for device discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the controller's HTTP port
	DefaultPort = 80

	// DefaultPattern matches the firmware's default device name
	DefaultPattern = "ESP32-2DMX"
)

// Scanner handles mDNS device discovery
type Scanner struct {
	// Timeout is the maximum time to wait for device discovery
	Timeout time.Duration

	// Pattern is matched case-insensitively against the instance name and
	// hostname. Empty matches every _http._tcp service.
	Pattern string
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner(pattern string) *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
		Pattern: pattern,
	}
}

// Scan discovers matching devices until the timeout or ctx expires.
// Devices answering on several addresses are reported once.
func (s *Scanner) Scan(ctx context.Context) ([]*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu      sync.Mutex
		devices []*Device
		seen    = make(map[string]bool)
		done    = make(chan struct{})
	)

	go func() {
		defer close(done)
		for entry := range entries {
			device := s.parseServiceEntry(entry)
			if device == nil {
				continue
			}
			mu.Lock()
			if !seen[device.Host()] {
				seen[device.Host()] = true
				devices = append(devices, device)
				logging.Debug("Discovered device", zap.String("name", device.Name), zap.String("host", device.Host()))
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	// zeroconf closes entries once the browse context ends
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]*Device(nil), devices...), nil
}

// Matches reports whether an instance or host name belongs to a controller.
func (s *Scanner) Matches(names ...string) bool {
	if s.Pattern == "" {
		return true
	}
	pattern := strings.ToLower(s.Pattern)
	for _, n := range names {
		if n != "" && strings.Contains(strings.ToLower(n), pattern) {
			return true
		}
	}
	return false
}

// parseServiceEntry converts a zeroconf service entry to a Device.
// Returns nil if the entry does not match the pattern or has no address.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Device {
	if entry == nil || !s.Matches(entry.Instance, entry.HostName) {
		return nil
	}

	// Prefer IPv4
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		k, v, _ := strings.Cut(txt, "=")
		metadata[k] = v
	}

	return &Device{
		Name:         entry.Instance,
		Hostname:     strings.TrimSuffix(entry.HostName, "."),
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// Advertise registers name as an _http._tcp service on port until the
// returned function is called. The simulator uses it so scans find it.
func Advertise(name string, port int, txt ...string) (func(), error) {
	server, err := zeroconf.Register(name, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	return server.Shutdown, nil
}
