package csvdb

import (
	"encoding/binary"
	"net"
	"strconv"
	"strings"

	cidrman "github.com/EvilSuperstars/go-cidrman"
	"github.com/juju/errors"
)

// Record presents a range of IPv4 addresses which belong to a country.
type Record struct {
	Country  string
	StartIP  net.IP
	FinishIP net.IP
}

// GetSubnets returns non-overlapping subnets of the given Record.
func (r *Record) GetSubnets() (subnets []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			switch x := rec.(type) {
			case string:
				err = errors.Annotate(errors.New(x), "Incorrect subnets")
			case error:
				err = errors.Annotate(x, "Incorrect subnets")
			}
		}
	}()

	subnets, err = cidrman.IPRangeToCIDRs(r.StartIP.String(), r.FinishIP.String())

	return
}

// NewRecord creates new CSV record. Range bounds are either dotted IPv4
// addresses or their integer form, software77 databases use the latter.
func NewRecord(country, startIP, finishIP string) (*Record, error) {
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" || country == "ZZ" {
		return nil, errors.New("Country is unknown")
	}

	start := parseIP(startIP)
	if start == nil {
		return nil, errors.Errorf("Start IP %q is not correct", startIP)
	}

	finish := parseIP(finishIP)
	if finish == nil {
		return nil, errors.Errorf("Finish IP %q is not correct", finishIP)
	}

	if binary.BigEndian.Uint32(start) > binary.BigEndian.Uint32(finish) {
		return nil, errors.Errorf("Range %s-%s is reversed", start, finish)
	}

	return &Record{country, start, finish}, nil
}

func parseIP(value string) net.IP {
	value = strings.TrimSpace(value)

	if num, err := strconv.ParseUint(value, 10, 32); err == nil {
		ip := make(net.IP, net.IPv4len)
		binary.BigEndian.PutUint32(ip, uint32(num))

		return ip
	}

	if parsed := net.ParseIP(value); parsed != nil {
		return parsed.To4()
	}

	return nil
}
