// Package monitor keeps per-rule execution history in fixed-capacity ring
// buffers and derives optimization hints from it: review candidates,
// a suggested processing order, and system-wide anomaly signals.
// Everything it produces is advisory; it never mutates rules or queues.
package monitor
