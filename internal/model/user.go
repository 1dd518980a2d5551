package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

func ParseRole(raw string) (Role, bool) {
	switch role := Role(strings.ToLower(strings.TrimSpace(raw))); role {
	case RoleAdmin, RoleModerator, RoleUser:
		return role, true
	default:
		return "", false
	}
}

// User is the stored identity record. PasswordHash and RefreshToken never
// leave the process in JSON form, neither in responses nor in cache snapshots.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Confirmed    bool      `json:"confirmed"`
	RefreshToken *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasRefreshToken reports whether token is the user's single live refresh token.
func (u User) HasRefreshToken(token string) bool {
	return u.RefreshToken != nil && *u.RefreshToken == token
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type Ack struct {
	Message string `json:"message"`
}
