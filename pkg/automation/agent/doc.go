// Package agent assembles the automation runtime: rule store, trigger
// dispatcher, evaluation and execution schedulers, performance monitor and
// workflow tracker, driven by cron ticks and an inbound command loop.
//
// Lifecycle is Initialize (rule load is fatal, snapshot restore is not),
// Start (ticks, command loop, optional rules watcher), Stop (drain pending
// items, final snapshot).
package agent
