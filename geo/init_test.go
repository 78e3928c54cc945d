package geo_test

import (
	"bytes"
	"encoding/binary"
	"net"

	"github.com/maxmind/mmdbwriter"
	"github.com/maxmind/mmdbwriter/mmdbtype"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type SessionMock struct {
	mock.Mock
}

func (m *SessionMock) Country(addr string) (string, error) {
	args := m.Called(addr)

	return args.String(0), args.Error(1)
}

func (m *SessionMock) Close() error {
	return m.Called().Error(0)
}

func countryRecord(isoCode, name string) mmdbtype.Map {
	country := mmdbtype.Map{"iso_code": mmdbtype.String(isoCode)}

	if name != "" {
		country["names"] = mmdbtype.Map{"en": mmdbtype.String(name)}
	}

	return mmdbtype.Map{"country": country}
}

// FsTestSuite gives every test a fresh in-memory filesystem with
// a small MaxMind database.
type FsTestSuite struct {
	suite.Suite

	fs afero.Fs
}

func (suite *FsTestSuite) SetupTest() {
	suite.fs = afero.NewMemMapFs()
	suite.NoError(afero.WriteFile(suite.fs, "GeoLite2-Country.mmdb", suite.MakeMaxmind(), 0644))
}

func (suite *FsTestSuite) MakeMaxmind() []byte {
	tree, err := mmdbwriter.New(mmdbwriter.Options{
		DatabaseType: "GeoLite2-Country",
		Description:  map[string]string{"en": "Test country database"},
		Languages:    []string{"en"},
		RecordSize:   24,
	})
	suite.Require().NoError(err)

	records := map[string]mmdbtype.Map{
		"81.2.69.0/24":    countryRecord("GB", "United Kingdom"),
		"89.160.20.0/24":  countryRecord("SE", "Sweden"),
		"216.160.83.0/24": countryRecord("US", "United States"),
		"2.125.160.0/24":  countryRecord("GB", ""),
		"67.43.156.0/24": {
			"continent": mmdbtype.Map{"code": mmdbtype.String("AS")},
		},
	}

	for cidr, record := range records {
		_, network, err := net.ParseCIDR(cidr)
		suite.Require().NoError(err)
		suite.Require().NoError(tree.Insert(network, record))
	}

	buf := &bytes.Buffer{}
	_, err = tree.WriteTo(buf)
	suite.Require().NoError(err)

	return buf.Bytes()
}

type ip2locationRow struct {
	from    string
	code    string
	country string
}

// MakeIP2Location builds IP2Location DB1 BIN file: a header, IPv4
// rows of (ip_from, pointer to country) and a string area. A country
// code is stored as a 2-byte string and a long name starts right
// after it.
func MakeIP2Location(rows []ip2locationRow) []byte {
	const (
		headerSize = 64
		columns    = 2
		rowSize    = columns * 4
	)

	// 2 sentinel rows close the last range and keep a binary search
	// inside the file.
	rows = append(rows,
		ip2locationRow{from: "255.255.255.255", code: "-", country: "-"},
		ip2locationRow{from: "255.255.255.255", code: "-", country: "-"})

	area := &bytes.Buffer{}
	stringsAt := uint32(headerSize + len(rows)*rowSize)
	pointers := map[string]uint32{}

	table := make([]byte, 0, len(rows)*rowSize)
	for _, row := range rows {
		key := row.code + "|" + row.country

		pointer, ok := pointers[key]
		if !ok {
			pointer = stringsAt + uint32(area.Len())
			pointers[key] = pointer

			code := make([]byte, 2)
			copy(code, row.code)
			area.WriteByte(byte(len(row.code)))
			area.Write(code)
			area.WriteByte(byte(len(row.country)))
			area.WriteString(row.country)
		}

		table = binary.LittleEndian.AppendUint32(table, binary.BigEndian.Uint32(net.ParseIP(row.from).To4()))
		table = binary.LittleEndian.AppendUint32(table, pointer)
	}

	header := make([]byte, headerSize)
	header[0] = 1 // DB1
	header[1] = columns
	header[2] = 24
	header[3] = 1
	header[4] = 1
	binary.LittleEndian.PutUint32(header[5:], uint32(len(rows)-2))
	binary.LittleEndian.PutUint32(header[9:], headerSize+1)
	header[29] = 1 // product code of IP2Location

	data := append(header, table...)
	data = append(data, area.Bytes()...)

	return append(data, make([]byte, 256)...)
}
