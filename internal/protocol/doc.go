// Package protocol defines the JSON messages exchanged over the device's
// websocket push channel.
//
// Every message is a JSON object with a "type" discriminator. The device
// pushes:
//
//	{"type":"status","uptime":3600,"rssi":-61,"freeHeap":182340,"ap_enabled":false}
//	{"type":"config","deviceName":"ESP32-2DMX","dhcpEnabled":true,...}
//	{"type":"ap_status","enabled":true,"ip":"192.168.4.1","stations":1}
//	{"type":"pixel_test","success":true}
//
// and the client sends:
//
//	{"type":"pixel-test","mode":2}
//	{"type":"get_status"}
//	{"type":"get_config"}
//
// Dispatcher routes inbound payloads to Handlers by type. Unknown types and
// malformed payloads are logged and dropped; they never close the channel.
package protocol
