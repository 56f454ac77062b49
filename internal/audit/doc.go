// Package audit persists rule execution records in SQLite.
//
// The in-memory execution history the engine keeps is bounded and lost
// on restart; the audit log is the durable record. It implements the
// engine's ExecutionSink so every execution lands here automatically.
package audit
