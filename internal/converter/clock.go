package converter

import "time"

// RunClock lays test cases out back to back on one synthetic timeline that
// starts at the run epoch.
type RunClock struct {
	cursor time.Time
}

func NewRunClock(epoch time.Time) *RunClock {
	return &RunClock{cursor: epoch.UTC()}
}

// Now returns the current cursor, the start time of the next test case.
func (c *RunClock) Now() time.Time {
	return c.cursor
}

// Open reserves d on the timeline and returns the start and stop times of
// that slot. The cursor moves to stop.
func (c *RunClock) Open(d time.Duration) (start, stop time.Time) {
	start = c.cursor
	stop = start.Add(d)
	c.cursor = stop
	return start, stop
}
