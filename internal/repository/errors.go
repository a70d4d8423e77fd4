// Package repository holds the errors shared by the persistence packages.
package repository

import "errors"

var (
	// ErrNotFound means the addressed row or document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate means a unique key is already taken.
	ErrDuplicate = errors.New("already exists")
	// ErrForbidden means the row exists but belongs to someone else.
	ErrForbidden = errors.New("forbidden")
)
