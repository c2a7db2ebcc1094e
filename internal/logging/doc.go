// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: colored console output
//
// Logs go to stderr so commands that print results on stdout stay pipeable.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	provisioner := terminal.NewProvisioner(terminal.Config{
//		Logger: logger.Component("provisioner"),
//	})
package logging
