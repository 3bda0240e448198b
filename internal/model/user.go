package model

import (
	"fmt"
	"strings"
	"time"
)

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	Hint1        string    `json:"hint1"`
	Hint2        string    `json:"hint2"`
	ImageURL     string    `json:"imageUrl"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PublicUser is the view of a user returned on login.
type PublicUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Hint1    string `json:"hint1"`
	Hint2    string `json:"hint2"`
	ImageURL string `json:"imageUrl"`
}

// Public returns the user without credential material.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Hint1:    u.Hint1,
		Hint2:    u.Hint2,
		ImageURL: u.ImageURL,
	}
}

// Registration holds the fields submitted when creating an account.
type Registration struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Hint1    string `json:"hint1"`
	Hint2    string `json:"hint2"`
	ImageURL string `json:"imageUrl"`
}

// Validate checks the required fields. Usernames are case-sensitive and kept
// as given; a username made only of whitespace is treated as empty.
func (r Registration) Validate() error {
	if strings.TrimSpace(r.Username) == "" || r.Password == "" {
		return fmt.Errorf("%w: username and password required", ErrInvalidInput)
	}
	return nil
}
