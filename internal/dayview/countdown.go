package dayview

import (
	"sync"
	"time"
)

// Countdown ticks a View's rest timer on its own goroutine. At most one loop
// runs per Countdown.
type Countdown struct {
	view     *View
	interval time.Duration
	onTick   func(RestTimer)

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewCountdown returns a stopped countdown for v. onTick, when not nil, is
// called after every tick with the timer state.
func NewCountdown(v *View, interval time.Duration, onTick func(RestTimer)) *Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	return &Countdown{view: v, interval: interval, onTick: onTick}
}

// Start tears down any running loop and starts a new one. The loop exits by
// itself once the timer is no longer running.
func (c *Countdown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()

	stop := make(chan struct{})
	done := make(chan struct{})
	c.stop, c.done = stop, done
	go c.loop(stop, done)
}

// Stop ends the loop and waits for its goroutine to return.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Countdown) stopLocked() {
	if c.stop == nil {
		return
	}
	close(c.stop)
	<-c.done
	c.stop, c.done = nil, nil
}

// Active reports whether a loop goroutine is still running.
func (c *Countdown) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Done returns a channel closed when the current loop exits, or nil when no
// loop was started.
func (c *Countdown) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Countdown) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			running := c.view.Tick()
			if c.onTick != nil {
				c.onTick(c.view.Timer())
			}
			if !running {
				return
			}
		}
	}
}
