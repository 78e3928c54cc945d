package geo

import (
	"bytes"
	"io"
	"net"

	"github.com/asergeyev/nradix"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/viaorg/viaorg/csvdb"
)

// rangesSession keeps CIDRs of IPv4 ranges in a radix tree. Values
// are normalized alpha2 country codes.
type rangesSession struct {
	tree *nradix.Tree
}

func (r *rangesSession) Country(addr string) (string, error) {
	if r.tree == nil {
		return "", ErrSessionClosed
	}

	ip := net.ParseIP(addr)
	if ip == nil {
		return "", errors.Annotatef(ErrInvalidAddress, "%q", addr)
	}

	ip = ip.To4()
	if ip == nil {
		return "", errors.Annotatef(ErrNotFound, "%s is not IPv4", addr)
	}

	value, err := r.tree.FindCIDR(ip.String())
	if err != nil {
		return "", errors.Annotate(err, "Cannot lookup this ip address")
	}

	code, _ := value.(string)
	if name := CountryName(code); name != "" {
		return name, nil
	}

	return "", ErrNotFound
}

func (r *rangesSession) Close() error {
	r.tree = nil

	return nil
}

func (r *rangesSession) add(record *csvdb.Record) error {
	code := NormalizeAlpha2Code(record.Country)
	if code == "" {
		return nil
	}

	subnets, err := record.GetSubnets()
	if err != nil {
		return errors.Annotatef(err, "Cannot build subnets for %s-%s", record.StartIP, record.FinishIP)
	}

	for _, subnet := range subnets {
		err := r.tree.AddCIDR(subnet, code)

		switch {
		case err == nradix.ErrNodeBusy:
			log.WithFields(log.Fields{
				"subnet":  subnet,
				"country": code,
			}).Debug("Subnet is already known")
		case err != nil:
			return errors.Annotatef(err, "Cannot add subnet %s", subnet)
		}
	}

	return nil
}

// OpenRanges reads CSV file with IPv4 ranges: 'start,finish,country'.
// Both dotted and integer forms of addresses are supported. If a file
// has 7 columns, it is treated as software77 IpToCountry.csv.
func OpenRanges(fs afero.Fs, path string) (Session, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Annotatef(err, "Cannot read database %s", path)
	}

	session := &rangesSession{tree: nradix.NewTree(0)}
	reader := csvdb.NewCSVReader(bytes.NewReader(data), detectColumns(data))
	records := 0

	for {
		record, err := reader.Read()

		switch {
		case err == io.EOF:
			log.WithFields(log.Fields{
				"path":    path,
				"records": records,
				"skipped": reader.Skipped(),
			}).Debug("Database is opened.")

			return session, nil
		case err != nil:
			return nil, errors.Annotatef(err, "Cannot parse database %s", path)
		case record == nil:
			continue
		}

		if err := session.add(record); err != nil {
			return nil, errors.Annotatef(err, "Cannot load database %s", path)
		}

		records++
	}
}

func detectColumns(data []byte) csvdb.Columns {
	reader := csvdb.NewCSVReader(bytes.NewReader(data), csvdb.DefaultColumns)

	row, err := reader.NextRow()
	if err == nil && len(row) >= 7 {
		return csvdb.Software77Columns
	}

	return csvdb.DefaultColumns
}
