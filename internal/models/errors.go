package models

import "errors"

// Error taxonomy shared across the sync, polling and query paths.
// Foreground callers match these with errors.Is; background triggers
// log and swallow them at their own boundary.
var (
	// ErrNetworkUnavailable means there was no connectivity at call
	// time. Callers should defer, not retry immediately.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrRemoteError means the remote responded with a failure status.
	ErrRemoteError = errors.New("remote returned an error")

	// ErrEmptyRemoteResponse means the catalog fetch succeeded but the
	// payload contained no records. The local store is left intact.
	ErrEmptyRemoteResponse = errors.New("remote catalog response is empty")

	// ErrStorageExhausted means a local durable write failed due to
	// capacity. Recovery is an explicit clear-and-resync.
	ErrStorageExhausted = errors.New("local storage exhausted")

	// ErrCloudUnavailable means the cloud replica is unreachable or not
	// configured. Always non-fatal; the system degrades to local-only.
	ErrCloudUnavailable = errors.New("cloud replica unavailable")
)
