package services

import "errors"

var (
	// ErrInvalidOrExpiredToken covers tokens that never existed, expired or were already used.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrUserExists            = errors.New("user already exists")
	ErrDeliveryFailed        = errors.New("email delivery failed")
	ErrStorageDisabled       = errors.New("object storage is not configured")
	ErrUnsupportedImage      = errors.New("unsupported image type")
	ErrImageTooLarge         = errors.New("image too large")
)
