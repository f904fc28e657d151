// Package discovery finds DMX controllers on the local network over mDNS.
//
// The firmware registers its device name as the network hostname and serves
// its web UI over HTTP, so controllers show up as "_http._tcp" services.
// Scanner browses that service type and keeps entries whose instance name or
// hostname contains a pattern (by default "ESP32-2DMX").
//
//	devices, err := discovery.NewScanner("ESP32-2DMX").Scan(ctx)
//	for _, d := range devices {
//	    fmt.Println(d.Name, d.Host())
//	}
//
// Multicast must be allowed on the interface (UDP 5353) and the controller
// must be on the same network segment.
package discovery
