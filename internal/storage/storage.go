package storage

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrUsernameTaken        = errors.New("username already taken")
	ErrNotFound             = errors.New("not found")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrOAuthSessionNotFound = errors.New("oauth session not found")
	ErrResetTokenNotFound   = errors.New("password reset token not found")
	ErrInviteNotFound       = errors.New("invite not found")
	ErrInviteNotPending     = errors.New("invite is not pending")
)
