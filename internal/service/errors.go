package service

import "errors"

var (
	// ErrEmptyMessage rejects messages whose content trims to nothing.
	// Raised before any repository call is made.
	ErrEmptyMessage = errors.New("message content is empty")

	// ErrInvalidCredentials covers unknown email and wrong password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned when creating a user with an existing email
	// whose identity cannot be reconciled.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidInput covers validation failures on create operations.
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden is returned when the caller is authenticated but not
	// allowed to touch the requested resource.
	ErrForbidden = errors.New("forbidden")
)
