// Package gain converts level settings and applies them to audio blocks.
package gain

import "math"

// SilenceDB is the bottom of the engine's level control
const SilenceDB = -60.0

// ToLinear converts decibels to amplitude. Anything at or below floor is
// silence.
func ToLinear(db, floor float64) float64 {
	if db <= floor {
		return 0
	}
	return math.Pow(10, db/20)
}

// ToDB converts amplitude to decibels, clamped to floor
func ToDB(linear, floor float64) float64 {
	if linear <= 0 {
		return floor
	}
	return math.Max(20*math.Log10(linear), floor)
}

// Apply scales every channel of block in place
func Apply(block [][]float32, g float32) {
	if g == 1 {
		return
	}
	for _, ch := range block {
		for i := range ch {
			ch[i] *= g
		}
	}
}
