package domain

import "time"

// Token describes an issued bearer token. ID is the JWT id.
type Token struct {
	ID        string
	SubjectID string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Lifetime is how long the token is valid from issue.
func (t Token) Lifetime() time.Duration {
	return t.ExpiresAt.Sub(t.IssuedAt)
}
