package user

import "time"

// User represents a registered account.
type User struct {
	ID        int64     // ID is assigned by the store on insert
	Name      string    // Name is the display name given at registration
	Email     string    // Email is unique across all users
	Password  string    // Password holds the bcrypt hash, never the plaintext
	CreatedAt time.Time // CreatedAt is maintained by the store
	UpdatedAt time.Time // UpdatedAt is maintained by the store
}
