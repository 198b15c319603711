package domain

import "errors"

var (
	ErrStoreNotConfigured = errors.New("store not configured")
	ErrRemoteUnavailable  = errors.New("remote generator unavailable")
	ErrMalformedOrder     = errors.New("malformed order")
)
