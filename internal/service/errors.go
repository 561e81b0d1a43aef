package service

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidState       = errors.New("invalid state")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrAnalysisDisabled   = errors.New("homework analysis is not configured")
)
