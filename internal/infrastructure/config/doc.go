// Package config provides 12-factor configuration for the provisioning server.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables.
//
// Configuration Sections:
//   - Server: HTTP listen address
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting
//   - Terminal: workspace roots, ignore globs, settings file, platform
//   - Remote: SSH connection used for remote projects
//
// Environment Variables:
//   - PORT, HOST, LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - TERMPROV_SETTINGS, TERMPROV_WORKSPACE, TERMPROV_IGNORE, TERMPROV_PLATFORM,
//     TERMPROV_ACTIVE, TERMPROV_PYTHON, TERMPROV_INHERIT_ENV
//   - TERMPROV_SSH_HOST, TERMPROV_SSH_USER, TERMPROV_SSH_PORT,
//     TERMPROV_SSH_IDENTITY, TERMPROV_SSH_JUMP, TERMPROV_SSH_OPTIONS
package config
