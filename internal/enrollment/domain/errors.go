package domain

import "errors"

var (
	ErrNotFound    = errors.New("enrollment_not_found")
	ErrInvalidPair = errors.New("invalid_enrollment_pair")
)
