// Package publish provides engine.Publisher implementations: an ordered
// fan-out, a structured log sink, a NATS bus publisher and a line writer
// for terminals and pipes.
package publish
