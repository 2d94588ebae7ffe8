package identity

import "time"

// User represents a registered account holder.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash []byte
	TokenVersion int
	CreatedAt    time.Time
	LastLogin    time.Time
}

// Credentials carries a login or registration request.
type Credentials struct {
	Username string
	Email    string
	Password string
}
