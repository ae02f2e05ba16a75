package userclient

import (
	"time"

	"github.com/gotd/contrib/middleware/floodwait"
	"github.com/gotd/contrib/middleware/ratelimit"
	"github.com/gotd/td/telegram"
	"golang.org/x/time/rate"
)

// newDefaultMiddlewares waits out FLOOD_WAIT errors up to maxWait and keeps the
// request rate under the account limits.
func newDefaultMiddlewares(maxWait time.Duration) []telegram.Middleware {
	return []telegram.Middleware{
		floodwait.NewSimpleWaiter().WithMaxRetries(5).WithMaxWait(maxWait),
		ratelimit.New(rate.Every(100*time.Millisecond), 5),
	}
}
