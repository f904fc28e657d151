// Package push implements the client side of the device's websocket push
// channel.
//
// The client moves through Disconnected, Connecting and Connected. When a
// connection closes or a dial fails it waits a fixed delay and reconnects,
// up to a fixed number of attempts; a successful open resets the count.
// Once the attempts are used up the client stays Disconnected until
// Restart is called, and the config synchronizer's polling keeps the
// dashboard fresh in the meantime.
//
//	dispatcher := protocol.NewDispatcher(sync)
//	client := push.New("ws://192.168.1.50/ws", dispatcher,
//	    push.OnStateChange(func(s push.State) { sync.SetConnected(s == push.Connected) }),
//	)
//	client.Start(ctx)
//	client.Send(protocol.NewPixelTest(2))
//
// Send is best effort: while not connected messages are dropped with a
// logged warning and nothing is queued.
package push
