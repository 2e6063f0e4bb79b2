// Package bus defines the message-passing boundary between the automation
// agent and its collaborators.
//
// Outbound events (rule lifecycle, workflow lifecycle, anomalies, metrics,
// permanent execution failures, internal errors) form a tagged union behind
// the Event interface and are delivered to subscribers over channels.
// Inbound requests form the Command union, consumed by the agent's command
// loop.
//
// Delivery is intentionally best-effort: Publish never blocks the caller,
// so a slow dashboard can never stall a scheduler tick.
package bus
