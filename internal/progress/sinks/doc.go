// Package sinks implements the progress consumers wired by the CLI: a zap
// LogSink and a PrometheusSink whose collectors can be pushed to a
// Pushgateway when a run ends.
package sinks
