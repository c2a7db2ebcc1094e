// Package ws streams a provisioned terminal over a WebSocket.
//
// Output is polled from the PTY buffer and pushed to the client; client
// frames carry keystrokes and resize events.
//
// Message Types (Client → Server):
//   - input: {"type":"input","data":"ls\n"}
//   - resize: {"type":"resize","cols":120,"rows":40}
//   - ping: keep-alive
//
// Message Types (Server → Client):
//   - output: terminal output
//   - exit: process ended; carries the exit code
//   - pong: reply to ping
//   - error: a frame could not be applied
//
// Example Usage:
//
//	handler := ws.NewHandler(manager, metrics, logger, middleware.IsLoopbackOrigin)
//	router.GET("/terminals/:id/stream", handler.HandleConnection)
package ws
