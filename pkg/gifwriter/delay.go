package gifwriter

import "math"

// Delay returns the centiseconds between two timestamps in seconds,
// rounded and clamped to [1, 65535].
func Delay(start, end float64) uint16 {
	return clampDelay(int64(math.Round(end*100)) - int64(math.Round(start*100)))
}

// DelayTracker converts frame timestamps to delays while carrying rounding
// error forward, so the summed delays stay on the source timeline.
type DelayTracker struct {
	origin  float64
	elapsed int64
	started bool
}

// Next returns the delay of a frame displayed from start until end.
// The first call fixes the timeline origin at start.
func (d *DelayTracker) Next(start, end float64) uint16 {
	if !d.started {
		d.origin = start
		d.started = true
	}
	target := int64(math.Round((end - d.origin) * 100))
	delay := clampDelay(target - d.elapsed)
	d.elapsed += int64(delay)
	return delay
}

// Elapsed returns the total centiseconds handed out so far.
func (d *DelayTracker) Elapsed() int64 {
	return d.elapsed
}

func clampDelay(cs int64) uint16 {
	switch {
	case cs < 1:
		return 1
	case cs > 0xffff:
		return 0xffff
	default:
		return uint16(cs)
	}
}
