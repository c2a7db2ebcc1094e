// Package terminal runs launch plans on local pseudo-terminals.
//
// Manager is the session sink handed to the provisioner: Launch starts the
// plan's program on a PTY with the plan's working directory and environment,
// and the returned Session accepts input (including the virtual environment
// activation line) and signals exit through Done.
//
// Output is kept in a per-session circular buffer and drained by Read. Remote
// plans need nothing special here; their program is the transport client.
package terminal
