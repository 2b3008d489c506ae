package apperr

import "errors"

var (

	// common errors
	ErrUnauthenticated = errors.New("not authenticated")
	ErrUnauthorized    = errors.New("not authorized")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")

	// pairing-specific errors
	ErrInvalidCode    = errors.New("invalid or used invite code")
	ErrExpired        = errors.New("invite code expired")
	ErrSelfRedemption = errors.New("cannot redeem own invite code")

	// payment-specific errors
	ErrNotConfigured    = errors.New("payment processor not configured")
	ErrProcessor        = errors.New("payment processor error")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)
