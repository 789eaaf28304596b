package campaign

import "time"

// Waiter paces successive dispatches. The delay exists to respect the mail
// provider's sending-rate expectations, so the default implementation is a
// plain blocking sleep; tests substitute a no-op.
type Waiter interface {
	Wait(d time.Duration)
}

// SleepWaiter blocks the calling goroutine for the full delay.
type SleepWaiter struct{}

// Wait implements Waiter.
func (SleepWaiter) Wait(d time.Duration) {
	time.Sleep(d)
}
