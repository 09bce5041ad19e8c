package domain

import (
	"time"
)

// User represents a registered account. PasswordHash and RefreshToken never
// leave the service layer.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserView is the public projection of a User.
type UserView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// View returns the public projection of u.
func (u *User) View() UserView {
	return UserView{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
}

// UserUpdate lists the columns to change on a user row. A nil field is left
// untouched; a RefreshToken pointing at "" clears the stored token.
type UserUpdate struct {
	Username     *string
	PasswordHash *string
	RefreshToken *string
}

// IsEmpty reports whether the update changes nothing.
func (u UserUpdate) IsEmpty() bool {
	return u.Username == nil && u.PasswordHash == nil && u.RefreshToken == nil
}

// TokenPair holds the tokens returned to the client. RefreshToken is only
// set when a new refresh token was issued.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// AuthResult is returned by every authentication operation.
type AuthResult struct {
	User  UserView   `json:"user"`
	Token *TokenPair `json:"token,omitempty"`
}
