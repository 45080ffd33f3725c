// Package progress defines the run and batch events emitted by the import and
// update pipelines, and a non-blocking Hub that batches them on a background
// goroutine before fanning them out to sinks such as structured logs and
// Prometheus collectors.
package progress
