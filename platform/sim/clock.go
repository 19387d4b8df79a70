// Package sim is host-side simulation hardware for the node: an emulated
// SCD41 on an I2C bus, a framebuffer panel, a discharging battery, a USB
// plug schedule, a logging radio and a virtual clock that deep sleep and
// light-sleep waits advance instead of blocking.
package sim

import (
	"sync"
	"time"

	logger "github.com/d2r2/go-logger"
)

var lg = logger.NewPackageLogger("sim", logger.InfoLevel)

// Epoch is where every simulation starts.
var Epoch = time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

// Clock is virtual time. Sleep returns immediately after advancing it.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock { return &Clock{now: start} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Since is the virtual time elapsed since t.
func (c *Clock) Since(t time.Time) time.Duration { return c.Now().Sub(t) }
