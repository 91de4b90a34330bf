package user

// RegisterRequest represents the payload for registering a new user.
// Only presence is checked; email shape and password strength are not.
type RegisterRequest struct {
	Name     string `validate:"required"`
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// RegisterResponse represents the created user. It never carries the password.
type RegisterResponse struct {
	ID    int64
	Name  string
	Email string
}
