// Package actions provides the action dispatch layer for Grow Core.
//
// An Action is a closed tagged union discriminated by its JSON "type" field:
//
//   - kasa_control: switch a Kasa smart plug or strip
//   - switchbot_control: drive a SwitchBot device
//   - ifttt_trigger: fire a third-party webhook event
//   - notification: operator-facing message with placeholder interpolation
//   - scenario: expand a named multi-step sequence from the Library
//
// The Dispatcher executes one action at a time, issuing exactly one outbound
// HTTP call per primitive action against the local device proxy. A non-2xx
// response surfaces as an error carrying the HTTP status. Scenario actions
// expand through the Library: steps run in array order with optional
// inter-step delays, and a failed step marked critical aborts the remainder
// while still reporting the steps already run.
//
// # Thread Safety
//
// Dispatcher and Library are safe for concurrent use from multiple
// goroutines.
package actions
