package lighting

import (
	"fmt"
	"math"
)

// DefaultMaxByte is the per-channel scale factor used when no channel-scale
// document is configured. 0xFF covers the common controller firmware; some
// installations run firmware that expects 0x64 (decimal 100).
const DefaultMaxByte = 0xFF

// PercentToHex converts a single channel percentage to a two-character
// uppercase hex string, zero padded.
//
// NaN inputs encode as "00". Out-of-range inputs are clamped into [0,100]
// before scaling, so a misconfigured 150% channel saturates rather than
// overflowing the wire byte.
func PercentToHex(percent float64, maxByte int) string {
	if math.IsNaN(percent) {
		return "00"
	}

	clamped := math.Max(0, math.Min(100, percent))
	value := int(math.Round(clamped / 100 * float64(maxByte)))

	return fmt.Sprintf("%02X", value)
}

// RecipeToHex encodes a recipe as the 12-character HEX12 payload:
// CW, WW, BL and RD channels followed by two reserved all-zero channels.
func RecipeToHex(r Recipe, maxByte int) string {
	return PercentToHex(r.CW, maxByte) +
		PercentToHex(r.WW, maxByte) +
		PercentToHex(r.BL, maxByte) +
		PercentToHex(r.RD, maxByte) +
		"0000"
}

// SafeDefaultHex returns a conservative all-channels-at-45% payload, used
// when a controller must be driven to a known-good state without a resolved
// recipe.
func SafeDefaultHex(maxByte int) string {
	return RecipeToHex(Recipe{CW: 45, WW: 45, BL: 45, RD: 45}, maxByte)
}
