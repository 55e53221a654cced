package domain

import "time"

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Email        *string
	CreatedAt    time.Time
}

type APIToken struct {
	Token     string
	Username  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (t APIToken) Expired(now time.Time) bool { return !now.Before(t.ExpiresAt) }
