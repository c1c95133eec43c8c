package storage

import "errors"

var (
	ErrStoreClosed  = errors.New("device store is closed")
	ErrWriteTimeout = errors.New("device store write timeout")
)
