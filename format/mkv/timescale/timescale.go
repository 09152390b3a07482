// Package timescale converts between Matroska ticks and time.Duration.
// A Matroska timescale is the number of nanoseconds in one tick.
package timescale

import (
	"math"
	"math/bits"
	"time"
)

// Default is the TimecodeScale used when Info does not carry one (1ms ticks).
const Default uint64 = 1000000

// ToDuration converts a tick count (which may be negative) to a duration,
// saturating instead of wrapping.
func ToDuration(ticks int64, scale uint64) time.Duration {
	neg := ticks < 0
	abs := uint64(ticks)
	if neg {
		abs = uint64(-ticks)
	}
	hi, lo := bits.Mul64(abs, scale)
	if hi != 0 || lo > math.MaxInt64 {
		if neg {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	if neg {
		return -time.Duration(lo)
	}
	return time.Duration(lo)
}

// FromDuration converts a duration to ticks, rounding half away from zero.
func FromDuration(d time.Duration, scale uint64) int64 {
	if scale == 0 {
		return 0
	}
	s := int64(scale)
	q, r := int64(d)/s, int64(d)%s
	if 2*abs(r) >= s {
		if d > 0 {
			q++
		} else {
			q--
		}
	}
	return q
}

// Float converts the fractional tick count of an Info Duration element.
func Float(ticks float64, scale uint64) time.Duration {
	ns := ticks * float64(scale)
	if ns >= math.MaxInt64 {
		return math.MaxInt64
	}
	return time.Duration(math.Round(ns))
}

// Micro returns d in whole microseconds, the unit of the control protocol.
func Micro(d time.Duration) int64 {
	return d.Microseconds()
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
