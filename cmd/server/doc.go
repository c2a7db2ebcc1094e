// Package main runs the terminal provisioning server.
//
// The server indexes the configured workspace, then exposes terminal
// provisioning over HTTP and WebSocket:
//
//	client → gin router → Provisioner → PTY session manager
//	                                   → ssh (remote projects)
//
// Configuration:
//   - Environment variables (see internal/infrastructure/config)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Local project
//	./server -workspace $HOME/src/app,$HOME/src/lib -active $HOME/src/app
//
//	# Remote project over SSH
//	TERMPROV_SSH_USER=deploy ./server -ssh-host build-box -workspace /srv/app
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown, kills every terminal
//   - SIGHUP: reload terminal settings files
package main
