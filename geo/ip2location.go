package geo

import (
	"net"

	"github.com/ip2location/ip2location-go/v9"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// ip2locationMissing is a country code of unallocated ranges in
// IP2Location databases.
const ip2locationMissing = "-"

type ip2locationSession struct {
	db *ip2location.DB
}

func (i *ip2locationSession) Country(addr string) (string, error) {
	if i.db == nil {
		return "", ErrSessionClosed
	}

	if net.ParseIP(addr) == nil {
		return "", errors.Annotatef(ErrInvalidAddress, "%q", addr)
	}

	record, err := i.db.Get_all(addr)
	if err != nil {
		return "", errors.Annotate(err, "Cannot lookup this ip address")
	}

	// Database messages like 'Invalid IP address.' come in the same
	// fields, so anything which is not a country code is a miss.
	if record.Country_short == ip2locationMissing {
		return "", ErrNotFound
	}

	code := NormalizeAlpha2Code(record.Country_short)
	if len(record.Country_short) != 2 || code == "" {
		return "", errors.Annotatef(ErrNotFound, "%q", record.Country_short)
	}

	if record.Country_long != "" && record.Country_long != ip2locationMissing {
		return record.Country_long, nil
	}

	if name := CountryName(code); name != "" {
		return name, nil
	}

	return "", ErrNotFound
}

func (i *ip2locationSession) Close() error {
	if i.db != nil {
		i.db.Close()
		i.db = nil
	}

	return nil
}

// OpenIP2Location opens IP2Location BIN database like
// IP2LOCATION-LITE-DB1.BIN.
func OpenIP2Location(fs afero.Fs, path string) (Session, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, errors.Annotatef(err, "Cannot open database %s", path)
	}

	db, err := ip2location.OpenDBWithReader(file)
	if err != nil {
		file.Close()
		return nil, errors.Annotatef(err, "Cannot initialize a reader of %s", path)
	}

	log.WithField("path", path).Debug("Database is opened.")

	return &ip2locationSession{db: db}, nil
}
