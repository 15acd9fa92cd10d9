// Package model holds the small set of persistence-shaped value types
// shared across the login and database layers.
package model

import "time"

// Account is a row from the accounts table.
type Account struct {
	Login        string
	PasswordHash string // PHC-encoded Argon2id hash
	AccessLevel  int32
	LastServer   int32
	LastIP       string
	LastActive   time.Time
}
