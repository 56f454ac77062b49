// Package ingest feeds the automation engine from MQTT.
//
// The sensor pollers publish each reading on its own topic and Grow Core
// relays inbound webhook events onto a second topic family. This package
// subscribes to both, decodes the payloads into sensor readings, and hands
// them to the rule engine:
//
//	growcore/sensor/{source}/{device}/{type}  ─┐
//	                                           ├─> Bridge ──> Engine.Evaluate
//	growcore/webhook/{event}                  ─┘
//
// Sensor payloads are either a bare JSON number or an object with a "value"
// field and optional "timestamp". Webhook payloads carry service-specific
// shapes and are normalized through a fixed event mapping table; events the
// table does not know are dropped with a debug log.
//
// # Thread Safety
//
// All Bridge methods are safe for concurrent use. Message handlers run on
// the MQTT client's callback goroutines.
package ingest
