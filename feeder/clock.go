package feeder

import "time"

// PollInterval is the slice at which every suspension point re-checks for a stop request
const PollInterval = 100 * time.Millisecond

// Clock is the time source used by the poll loops
type Clock interface {
	Now() time.Time
	Sleep(time.Duration)
}

type realClock struct{}

// RealClock uses the time package
func RealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }
