package entities

import "time"

// User is the profile returned by the auth endpoints.
type User struct {
	ID        int       `json:"id,omitempty"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// AuthResult is the success body of /api/auth/login and /api/auth/signup.
type AuthResult struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}

// AuthFailure is the error body of the auth endpoints.
type AuthFailure struct {
	Error string `json:"error"`
}
