package types

import "errors"

var (
	ErrMissingEventType = errors.New("event type cannot be empty")
)
