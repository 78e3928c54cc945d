package geo

import (
	"net"
	"time"

	"github.com/juju/errors"
	"github.com/oschwald/geoip2-golang"
	"github.com/oschwald/maxminddb-golang"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const maxmindLanguage = "en"

type maxmindSession struct {
	reader *geoip2.Reader
}

func (m *maxmindSession) Country(addr string) (string, error) {
	if m.reader == nil {
		return "", ErrSessionClosed
	}

	ip := net.ParseIP(addr)
	if ip == nil {
		return "", errors.Annotatef(ErrInvalidAddress, "%q", addr)
	}

	record, err := m.reader.Country(ip)
	if err != nil {
		return "", errors.Annotate(err, "Cannot lookup this ip address")
	}

	if name := record.Country.Names[maxmindLanguage]; name != "" {
		return name, nil
	}

	if name := CountryName(record.Country.IsoCode); name != "" {
		return name, nil
	}

	return "", ErrNotFound
}

func (m *maxmindSession) Close() error {
	if m.reader == nil {
		return nil
	}

	err := m.reader.Close()
	m.reader = nil

	return err
}

// OpenMaxmind opens MaxMind DB file like GeoLite2-Country.mmdb. If
// verify is set, a structure of the file is checked before use.
func OpenMaxmind(fs afero.Fs, path string, verify bool) (Session, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Annotatef(err, "Cannot read database %s", path)
	}

	if verify {
		if err := verifyMaxmind(data); err != nil {
			return nil, errors.Annotatef(err, "Database %s is corrupted", path)
		}
	}

	reader, err := geoip2.FromBytes(data)
	if err != nil {
		return nil, errors.Annotatef(err, "Cannot initialize a reader of %s", path)
	}

	log.WithFields(log.Fields{
		"path": path,
		"type": reader.Metadata().DatabaseType,
	}).Debug("Database is opened.")

	return &maxmindSession{reader: reader}, nil
}

func verifyMaxmind(data []byte) error {
	db, err := maxminddb.FromBytes(data)
	if err != nil {
		return errors.Annotate(err, "Cannot initialize a reader of maxminddb")
	}

	defer db.Close()

	if err := db.Verify(); err != nil {
		return errors.Annotate(err, "Verification has failed")
	}

	log.WithFields(log.Fields{
		"type":       db.Metadata.DatabaseType,
		"build_time": time.Unix(int64(db.Metadata.BuildEpoch), 0).UTC(),
		"node_count": db.Metadata.NodeCount,
	}).Info("Database is verified.")

	return nil
}
