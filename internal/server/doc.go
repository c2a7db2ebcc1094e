// Package server assembles the provisioning server.
//
// Bootstrap turns configuration into the provisioner's collaborators:
//   - workspace tree indexed from TERMPROV_WORKSPACE (tracked only, for remote projects)
//   - file-backed terminal settings, global plus per-member overlays
//   - toolchain store seeded with TERMPROV_PYTHON for the active member
//   - filesystem probe for the venv fallback
//   - SSH target when TERMPROV_SSH_HOST is set
//
// NewServer adds the PTY session manager, metrics, tracing and the gin
// router with the HTTP and WebSocket surfaces.
//
// Server Lifecycle:
//  1. Load configuration from environment/flags
//  2. Initialize logger (production or development)
//  3. Index workspace members and load their settings
//  4. Build the provisioner and routes
//  5. Serve until signalled; SIGHUP reloads settings
//  6. Kill every terminal on shutdown
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(ctx, cfg)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
