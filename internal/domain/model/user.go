package model

import "time"

// User owns orders.
type User struct {
	ID        int64
	Name      string
	Email     string
	CreatedAt time.Time
}
