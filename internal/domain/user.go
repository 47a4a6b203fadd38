package domain

import "time"

// User is an operator account for the catalogue API. PasswordHash holds a
// bcrypt hash and is stripped before the account leaves the service layer.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
