// Package mqtt republishes the controller's push stream to an MQTT broker.
//
// Topics live under a configurable prefix (default "dmxsync"):
//
//	<prefix>/availability  "online" or "offline", retained, also the last will
//	<prefix>/status        periodic status reports
//	<prefix>/config        merged configuration without secrets, retained
//	<prefix>/ap            access point status, retained
//	<prefix>/pixel_test    pixel test results
//
// A Publisher is a protocol.Handler and is registered on the dispatcher
// next to the config synchronizer.
package mqtt
