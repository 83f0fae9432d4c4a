package entity

import "errors"

// Domain errors for projects
var (
	ErrEmptyProjectCode   = errors.New("project code is required")
	ErrInvalidProjectCode = errors.New("project code contains invalid characters")
	ErrUnknownProject     = errors.New("unknown project")
	ErrProjectNotConfigured = errors.New("project has no CMS endpoint or token configured")
)
