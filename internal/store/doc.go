// Package store persists run history and the per-episode clip ledger in
// SQLite. The ledger drives idempotent re-entry: clips recorded as valid are
// skipped when an episode is run again.
package store
