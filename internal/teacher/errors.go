package teacher

import "errors"

var (
	ErrWrongPassword = errors.New("incorrect password")
	ErrSeatTaken     = errors.New("teacher console already logged in from another window, log out there first")
	ErrSeatLost      = errors.New("teacher seat was claimed by another window during login")
)
