package geoip

import "errors"

var (
	// ErrInvalidIP indicates the supplied string is not an IP address.
	ErrInvalidIP = errors.New("geoip: invalid ip address")

	// ErrUnresolvable indicates the address cannot have a meaningful
	// location (private, loopback, unspecified), or the database has no
	// record for it.
	ErrUnresolvable = errors.New("geoip: address not resolvable")

	// ErrDatabaseClosed indicates the resolver was used after Close.
	ErrDatabaseClosed = errors.New("geoip: database closed")
)
