// Package observability records what Build Brain does and watches the
// schedules it produces. Events are appended to a JSON Lines log, metrics are
// derived from that log on demand, alerts are evaluated against the task
// store, and OpenTelemetry providers export traces, metrics and logs.
package observability
