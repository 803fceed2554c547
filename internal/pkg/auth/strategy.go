package auth

import "time"

// StateSigner issues and verifies the opaque state carried by payment return links.
type StateSigner interface {
	Issue(orderID int64) (string, error)
	Verify(state string, orderID int64) error
	Enabled() bool
}

type Options struct {
	TTL time.Duration
}
