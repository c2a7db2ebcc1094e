// Package http exposes the terminal provisioner over a JSON API.
//
// Routes:
//   - GET    /health               liveness and provisioning mode
//   - GET    /metrics/json         JSON summary of the Prometheus counters
//   - POST   /plans                compute a launch plan without starting it
//   - POST   /terminals            provision a shell or task terminal
//   - GET    /terminals            list live terminals
//   - GET    /terminals/:id        one terminal with its process state
//   - POST   /terminals/:id/input  write keystrokes
//   - POST   /terminals/:id/resize change the PTY size
//   - GET    /terminals/:id/output drain buffered output
//   - DELETE /terminals/:id        kill the terminal
//
// Task requests without an id get a random UUID.
package http
