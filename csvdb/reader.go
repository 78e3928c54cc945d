package csvdb

import (
	"encoding/csv"
	"io"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
)

// Columns defines positions of the range bounds and country code in
// a CSV row.
type Columns struct {
	Start   int
	Finish  int
	Country int
}

// DefaultColumns is a layout of 'start,finish,country' files.
var DefaultColumns = Columns{Start: 0, Finish: 1, Country: 2}

// Software77Columns is a layout of IpToCountry.csv from software77.
var Software77Columns = Columns{Start: 0, Finish: 1, Country: 4}

func (c Columns) width() int {
	rv := c.Start

	for _, v := range []int{c.Finish, c.Country} {
		if v > rv {
			rv = v
		}
	}

	return rv + 1
}

// CSVReader is a wrapper over csv.Reader to convert each row into Record instance.
type CSVReader struct {
	reader  *csv.Reader
	columns Columns
	skipped int
}

// Read returns the next record. If row is valid CSV but cannot be
// converted into a Record, nil record is returned with nil error.
func (cr *CSVReader) Read() (*Record, error) {
	data, err := cr.next()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}

		return nil, errors.Annotate(err, "Cannot read new record")
	}

	if len(data) < cr.columns.width() {
		cr.skipped++

		log.WithFields(log.Fields{
			"data": data,
		}).Debug("Row is too short")

		return nil, nil
	}

	record, err := NewRecord(data[cr.columns.Country], data[cr.columns.Start], data[cr.columns.Finish])
	if err != nil {
		cr.skipped++

		log.WithFields(log.Fields{
			"data": data,
			"err":  err,
		}).Debug("Cannot parse record")

		return nil, nil
	}

	return record, nil
}

// Skipped returns a number of rows which were not converted to records.
func (cr *CSVReader) Skipped() int {
	return cr.skipped
}

// NextRow returns the next non-empty row as is, without conversion.
func (cr *CSVReader) NextRow() ([]string, error) {
	return cr.next()
}

func (cr *CSVReader) next() (data []string, err error) {
	for err == nil && len(data) == 0 {
		data, err = cr.reader.Read()
	}

	return
}

// NewCSVReader converts given io.Reader instance into CSVReader.
func NewCSVReader(filefp io.Reader, columns Columns) *CSVReader {
	reader := csv.NewReader(filefp)
	reader.ReuseRecord = true
	reader.Comment = '#'
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	return &CSVReader{reader: reader, columns: columns}
}
