package domain

import "errors"

// Typed results the handlers branch on. None of these are "exceptional":
// a lost race surfaces as ErrInvalidTransition, a duplicate view as a
// plain false return from the tracker.
var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrBusy              = errors.New("busy")
	ErrExpired           = errors.New("expired")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
)
