// Package rule defines the automation rule model.
//
// A Rule binds a trigger type to a prioritized set of conditions. Conditions
// use a fixed operator vocabulary (equals, not_equals, contains,
// greater_than, less_than, exists, not_exists) over dot-path fields resolved
// against trigger payloads. The rule set is owned by the store package; this
// package only defines the value types and their validation.
package rule
