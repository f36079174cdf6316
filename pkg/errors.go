package pkg

import "errors"

var (
	ErrSessionClosed         = errors.New("session closed")
	ErrSessionNotAlive       = errors.New("session not alive")
	ErrInvalidWhitelistEntry = errors.New("invalid whitelist entry")
	ErrMalformedMessage      = errors.New("malformed message")
)
