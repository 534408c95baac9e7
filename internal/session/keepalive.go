package session

import (
	"context"
	"time"
)

// IdleTimeout is how long a connection may go without any client activity
// or keepalive reset before the accept loop tears it down.
const IdleTimeout = 120 * time.Second

// idleCheckInterval is how often WatchIdle polls the connection's last
// keepalive timestamp.
const idleCheckInterval = 5 * time.Second

// WatchIdle closes the connection if it goes longer than IdleTimeout
// without activity. Runs until ctx is cancelled or the connection closes.
func (c *Connection) WatchIdle(ctx context.Context) {
	ticker := time.NewTicker(idleCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if time.Since(c.LastKeepalive()) > IdleTimeout {
				c.Logger.Info("closing idle connection")
				c.ClosePeer()
				return
			}
		}
	}
}
