// Package units provides shared constants and conversions for CRT time units
package units

// NanosPerMicro is the number of nanoseconds in a microsecond. Hit timestamps
// are recorded in ns; coincidence windows are configured in µs.
const NanosPerMicro = 1e3

// NanosToMicros converts a duration in nanoseconds to microseconds.
func NanosToMicros(ns float64) float64 {
	return ns * 1e-3
}
