// Package lighting provides the pure calculation layer for horticultural
// light control: channel recipes, the HEX12 wire encoding understood by the
// fixture controllers, day-indexed plan resolution, and schedule window
// evaluation.
//
// # Key Types
//
//   - Recipe: Per-channel intensity percentages (cool white, warm white, blue, red)
//   - Plan: A day-indexed table of recipes (env.days), cyclic once exhausted
//   - PlanConfig: Anchoring for plan resolution (explicit DPS or a seed date)
//   - Schedule: Named on/off cycles in HH:MM local time, may cross midnight
//
// # Wire Format
//
// RecipeToHex encodes a recipe as exactly 12 uppercase hex characters:
// two digits each for CW, WW, BL and RD, followed by two reserved all-zero
// channels. The per-channel scale factor (maxByte) is deployment-wide;
// most controllers use 0xFF, some installations use 0x64.
//
// Everything in this package is a pure function of its inputs. Callers
// supply the current time explicitly so behaviour is deterministic in tests.
package lighting
