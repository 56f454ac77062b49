// Package rules provides the sensor-triggered automation engine for
// Grow Core.
//
// Rules pair a trigger (source/device/type filters plus an optional value
// comparison) with a list of actions. The engine evaluates every enabled
// rule against each incoming sensor reading; matched rules pass through a
// debounce gate, optional time-of-day conditions and an optional rule-level
// schedule before their actions dispatch.
//
// Execution pipeline per reading:
//
//	SensorReading
//	  └─ trigger match (enabled rules only)
//	       └─ debounce gate (default 30s per rule)
//	            └─ condition gate (timeRange)
//	                 └─ schedule gate (hours + days)
//	                      └─ actions dispatched, outcome recorded in History
//
// Failures are isolated per rule: one rule's dispatch error never stops
// evaluation of the others, and every outcome (executed or error) lands in
// the bounded ExecutionHistory for operator inspection.
//
// # Thread Safety
//
// Engine is safe for concurrent use. Readings may arrive from multiple
// goroutines (the MQTT bridge invokes handlers concurrently) while the
// schedule executor and status APIs read engine state.
package rules
