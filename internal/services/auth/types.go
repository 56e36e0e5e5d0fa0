package auth

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrSessionNotFound    = errors.New("session not found")
	ErrRefreshNotFound    = errors.New("refresh token not found")
)

type SessionRecord struct {
	SID       string
	UserID    string
	Email     string
	ExpiresAt time.Time
}

type AccessClaims struct {
	UserID    string
	SID       string
	Email     string
	ExpiresAt time.Time
}

type Me struct {
	ID       string
	Email    string
	Username string
	FullName string
}

type AuthResult struct {
	AccessToken   string
	RefreshToken  string
	AccessExpires time.Time
	Me            Me
}
