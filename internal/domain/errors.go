package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnknownKind      = errors.New("unknown resource kind")
	ErrScopeRequired    = errors.New("query key requires a scope")
	ErrNotConnected     = errors.New("transport not connected")
)
