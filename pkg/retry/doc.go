// Package retry provides a retryable-operation abstraction with pluggable
// backoff strategies and context-aware waiting.
//
// The officer fetch contract uses a fixed number of attempts with a constant
// delay between them; tests inject a zero-delay backoff so retry paths run
// instantly.
package retry
