package models

// Token is one active session of a user.
type Token struct {
	// Access is the purpose the token was issued for, e.g. "auth".
	Access string
	Token  string
}
