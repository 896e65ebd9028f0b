package exam

import "errors"

// Caller-visible conditions. Storage failures are not part of this
// taxonomy and propagate as-is.
var (
	ErrNotFound             = errors.New("exam not found")
	ErrForbidden            = errors.New("exam belongs to another user")
	ErrAlreadyFinished      = errors.New("exam already finished")
	ErrInvalidQuestion      = errors.New("question is not part of this exam")
	ErrInvalidOption        = errors.New("invalid option letter")
	ErrNoQuestionsAvailable = errors.New("no questions available")
)
