package sim

import (
	"sync"
	"time"

	"github.com/calvinmclean/autofeed/feeder"
)

// VirtualClock is a feeder.Clock where Sleep advances time immediately. It lets a whole feeding
// sequence run in a few milliseconds
type VirtualClock struct {
	mu  sync.Mutex
	now time.Time
}

var _ feeder.Clock = &VirtualClock{}

func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *VirtualClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
