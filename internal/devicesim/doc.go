// Package devicesim simulates an ESP32-2DMX controller.
//
// A Device serves the same REST endpoints and /ws push channel as the
// firmware: GET /api/config, POST /api/{network,artnet,pixel,ap}, the AP
// config endpoints, reboot and factory reset. Form posts are merged the way
// the firmware merges them, followed by a config broadcast; status is
// broadcast every StatusInterval.
//
// For tests it can fail the next N requests with a chosen status code
// (FailNext) and drop every websocket connection (DropConnections). It runs
// standalone through `dmxsync simulate`, optionally capturing websocket
// traffic in both directions to a JSONL file. ReadCapture and Summarize read
// such a file back.
//
// Example:
//
//	dev := devicesim.New(devicesim.Options{StatusInterval: 100 * time.Millisecond})
//	srv := httptest.NewServer(dev)
//	defer srv.Close()
//	go dev.Run(ctx)
package devicesim
