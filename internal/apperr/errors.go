package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrNotLoaded      = errors.New("project not loaded")
	ErrInvalidProject = errors.New("invalid project file")
)
