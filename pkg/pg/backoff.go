package pg

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// linear waits interval, 2*interval, 3*interval and so on.
func linear(interval time.Duration) retry.Backoff {
	if interval <= 0 {
		interval = time.Second
	}
	var attempt time.Duration
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return attempt * interval, false
	})
}
