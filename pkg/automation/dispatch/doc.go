// Package dispatch implements trigger matching: resolving condition fields
// against trigger payloads, applying the operator vocabulary, and enqueuing
// execution items for fully-matched rules.
//
// Field paths use dot notation and resolve against the trigger payload
// first, then the trigger context. Evaluation is fail-closed: any condition
// error is logged and treated as a non-match, never a crash.
package dispatch
