// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered account together with its active session tokens.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	// Tokens holds the active sessions in the order they were issued.
	Tokens    []Token
	CreatedAt time.Time
}

// PublicUser is the externally visible projection of a User.
type PublicUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Public returns the projection of u that is safe to expose to clients.
func (u *User) Public() *PublicUser {
	return &PublicUser{ID: u.ID, Email: u.Email}
}

// HasToken reports whether token is active for u with the given purpose.
func (u *User) HasToken(token, access string) bool {
	for _, t := range u.Tokens {
		if t.Token == token && t.Access == access {
			return true
		}
	}
	return false
}
