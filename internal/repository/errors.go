package repository

import "errors"

// Typed error taxonomy per spec §4.1: every repository call returns a
// result or one of these, wrapped with context via fmt.Errorf's %w.
var (
	ErrNotFound  = errors.New("repository: not found")
	ErrConflict  = errors.New("repository: conflict")
	ErrTransient = errors.New("repository: transient failure")
)
