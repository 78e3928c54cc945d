package geo

import "github.com/juju/errors"

var (
	// ErrNotFound is returned if database has no country for the
	// address.
	ErrNotFound = errors.New("address is not found in the database")

	// ErrInvalidAddress is returned if a string is not an IP address.
	ErrInvalidAddress = errors.New("invalid ip address")

	// ErrSessionClosed is returned on lookups after Close.
	ErrSessionClosed = errors.New("session is closed")

	// ErrUnknownFormat is returned for unsupported database formats.
	ErrUnknownFormat = errors.New("unknown database format")
)
