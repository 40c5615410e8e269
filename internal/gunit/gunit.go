// Package gunit provides shared constants and conversions for acceleration units
package gunit

import "math"

// MilliGPerG is the fixed-point scale used on the wire: one g is 1000 milli-g.
const MilliGPerG = 1000

// Quantization is the resolution lost by a round trip through the wire
// encoding, in g.
const Quantization = 1.0 / MilliGPerG

// Limits of the int16 milli-g representation, in g (roughly ±32.7 g).
const (
	MaxG = math.MaxInt16 / float64(MilliGPerG)
	MinG = math.MinInt16 / float64(MilliGPerG)
)

// ToMilliG converts a reading in g to the wire representation. Values beyond
// the int16 range are clamped rather than wrapped.
func ToMilliG(g float64) int16 {
	mg := math.Round(g * MilliGPerG)
	switch {
	case mg > math.MaxInt16:
		return math.MaxInt16
	case mg < math.MinInt16:
		return math.MinInt16
	}
	return int16(mg)
}

// FromMilliG converts a wire value back to g.
func FromMilliG(mg int16) float64 {
	return float64(mg) / MilliGPerG
}
