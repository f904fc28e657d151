// Package deviceapi is a client for the controller's REST API.
//
// Endpoints:
//
//	GET  /api/config          full configuration as a flat JSON object
//	GET  /api/ap/config       access point ssid and enabled flag
//	POST /api/{form}          network, artnet, pixel or ap fields as JSON
//	POST /api/reboot          restart the controller
//	POST /api/factory-reset   restore defaults
//
// Any 2xx status is success. Failures are returned as *DeviceError, which
// classifies transport problems (timeout, refused, DNS, unreachable) apart
// from HTTP status errors and undecodable bodies:
//
//	snap, err := client.GetConfig(ctx)
//	if err != nil {
//	    fmt.Println(deviceapi.GetShortErrorMessage(err))
//	    fmt.Println(deviceapi.GetTroubleshootingHint(err))
//	}
package deviceapi
