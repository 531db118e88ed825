package constants

import "time"

// DefaultAttemptTimeout caps a single reconcile attempt against the cloud API.
const DefaultAttemptTimeout = 2 * time.Minute

// DefaultRunTimeout caps an entire reconciliation run.
const DefaultRunTimeout = 30 * time.Minute

// WatchDebounceInterval collapses bursts of file change events into one re-apply.
const WatchDebounceInterval = 500 * time.Millisecond
