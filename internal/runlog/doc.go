// Package runlog persists a local history of finished workflow runs and their
// per-artifact outcomes, backed by SQLite. It is an audit log for the
// `easel history` command; nothing is ever resumed or re-executed from it.
package runlog
