// Package geo resolves IP addresses to country names with local
// databases.
//
// A database is wrapped into a Session. Session is opened once, used
// for many lookups and closed at the end. WithSession guarantees that
// the session is released even if lookups fail.
package geo

import (
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const (
	// NotKnown is a label for addresses which cannot be resolved.
	NotKnown = "Not Known"

	// FormatMaxmind identifies MaxMind DB files (GeoLite2-Country.mmdb).
	FormatMaxmind = "mmdb"

	// FormatCSV identifies CSV files with IPv4 ranges.
	FormatCSV = "csv"

	// FormatIP2Location identifies IP2Location BIN files
	// (IP2LOCATION-LITE-DB1.BIN).
	FormatIP2Location = "ip2location"
)

// Session is an opened country database.
type Session interface {
	// Country returns a name of the country for the given address.
	Country(addr string) (string, error)
	Close() error
}

// Opener opens a new session.
type Opener func() (Session, error)

// Stats counts outcomes of the lookups.
type Stats struct {
	Resolved uint64
	Unknown  uint64
}

func (s *Stats) Used(err error) {
	if err == nil {
		s.Resolved++
	} else {
		s.Unknown++
	}
}

// Open opens a database of the given format. verify is applicable
// only to MaxMind databases.
func Open(fs afero.Fs, path, format string, verify bool) (Session, error) {
	switch format {
	case FormatMaxmind:
		return OpenMaxmind(fs, path, verify)
	case FormatCSV:
		return OpenRanges(fs, path)
	case FormatIP2Location:
		return OpenIP2Location(fs, path)
	}

	return nil, errors.Annotatef(ErrUnknownFormat, "format %q", format)
}

// NewOpener binds Open parameters.
func NewOpener(fs afero.Fs, path, format string, verify bool) Opener {
	return func() (Session, error) {
		return Open(fs, path, format, verify)
	}
}

// WithSession opens a session, passes it to callback and closes it
// afterwards. Close error is returned only if callback has succeeded.
func WithSession(open Opener, callback func(Session) error) (err error) {
	session, err := open()
	if err != nil {
		return errors.Annotate(err, "Cannot open database")
	}

	defer func() {
		if closeErr := session.Close(); closeErr != nil && err == nil {
			err = errors.Annotate(closeErr, "Cannot close database")
		}
	}()

	return callback(session)
}

// Resolve maps each address to a country name. Any lookup error maps
// to NotKnown.
func Resolve(session Session, addrs []string) ([]string, Stats) {
	rv := make([]string, 0, len(addrs))
	stats := Stats{}

	for _, addr := range addrs {
		name, err := session.Country(addr)
		stats.Used(err)

		if err != nil {
			log.WithFields(log.Fields{
				"ip":    addr,
				"error": err.Error(),
			}).Debug("Cannot resolve ip.")

			name = NotKnown
		}

		rv = append(rv, name)
	}

	return rv, stats
}
