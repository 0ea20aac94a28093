// Package workflow advances editions through the processing stages.
//
// The Manager runs a fixed pool of workers. Each worker reclaims editions
// whose heartbeat expired, then claims the next waiting edition, preferring
// later stages so finished work drains before new downloads start. A claim
// is an atomic status change in the store, so two workers never run the
// same edition.
//
// Stage execution itself (status transitions, timeouts, failure
// classification) lives in stageexec; this package owns scheduling,
// heartbeats, per-edition log files and runner lifecycle.
package workflow
