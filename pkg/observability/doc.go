/*
Package observability provides ready-made lifecycle hooks for monitoring Arbor machines.

It includes structured logging of every dispatch attempt and committed transition,
Prometheus metrics, and a bridge that publishes flattened trace records to any
ports.TraceSink. Hooks can be composed with Combine.
*/
package observability
