// Package filesystem answers metadata queries for paths that have not been
// indexed into the workspace tree. Probes go through github.com/viant/afs, so
// the same code serves local paths and any storage scheme afs understands.
package filesystem
