// Package scan walks decoded captures and extracts client addresses of
// requests which were relayed by Internet.org proxy.
//
// The proxy adds 'Via: Internet.org' header and passes an original
// client address in 'X-Forwarded-For'. Only requests with both are
// interesting.
package scan

import (
	"sort"
	"strings"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/viaorg/viaorg/capture"
)

const (
	protoHTTP = "http"

	fieldRequestLine  = "http.request.line"
	fieldForwardedFor = "http.x_forwarded_for"

	// ProxyMarker is a showname of the request line added by the proxy.
	// CRLF is escaped, this is how PDML exporters render it.
	ProxyMarker = `Via: Internet.org\r\n`
)

var (
	ErrNoName     = errors.New("element has no name")
	ErrNoShowName = errors.New("field has no showname")
	ErrNoShow     = errors.New("field has no show value")
)

// Status is an outcome of the packet scan.
type Status int

const (
	// StatusMatched means that packet has HTTP request relayed by proxy.
	StatusMatched Status = iota

	// StatusNotHTTP means that packet has no HTTP layer at all.
	StatusNotHTTP

	// StatusNotProxied means that packet has HTTP layer but it was not
	// relayed by proxy.
	StatusNotProxied

	// StatusMalformed means that packet structure is broken. Addresses
	// which were found before the broken element are still reported.
	StatusMalformed
)

func (s Status) String() string {
	switch s {
	case StatusMatched:
		return "matched"
	case StatusNotHTTP:
		return "not_http"
	case StatusNotProxied:
		return "not_proxied"
	case StatusMalformed:
		return "malformed"
	}

	return "unknown"
}

type Result struct {
	Status    Status
	Addresses []string
	Err       error
}

// Summary is an aggregated result of the document scan.
type Summary struct {
	Addresses []string
	Packets   int
	Statuses  map[Status]int
}

// Packet scans protocols of the packet in order. Each 'http' protocol is
// checked for a proxy marker first and only then forwarded addresses
// are collected. Structural errors stop the scan of the packet.
func Packet(packet capture.Packet) Result {
	rv := Result{Status: StatusNotHTTP}

	for i, proto := range packet.Protocols {
		name, ok := proto.Name()
		if !ok {
			return malformed(rv, errors.Annotatef(ErrNoName, "protocol %d", i))
		}

		if name != protoHTTP {
			continue
		}

		proxied, err := hasProxyMarker(proto)
		if err != nil {
			return malformed(rv, errors.Annotatef(err, "protocol %d", i))
		}

		if !proxied {
			if rv.Status == StatusNotHTTP {
				rv.Status = StatusNotProxied
			}

			continue
		}

		rv.Status = StatusMatched

		addrs, err := forwardedFor(proto)
		rv.Addresses = append(rv.Addresses, addrs...)

		if err != nil {
			return malformed(rv, errors.Annotatef(err, "protocol %d", i))
		}
	}

	return rv
}

// Document scans all packets of the document. Broken packets never
// abort the scan.
func Document(doc *capture.Document) Summary {
	rv := Summary{
		Addresses: []string{},
		Packets:   len(doc.Packets),
		Statuses:  map[Status]int{},
	}

	for i, packet := range doc.Packets {
		result := Packet(packet)

		rv.Statuses[result.Status]++
		rv.Addresses = append(rv.Addresses, result.Addresses...)

		if result.Status == StatusMalformed {
			log.WithFields(log.Fields{
				"packet": i + 1,
				"error":  result.Err.Error(),
			}).Debug("Skip malformed packet.")
		}
	}

	return rv
}

// Unique returns distinct addresses. Result is sorted to get
// reproducible output.
func Unique(addrs []string) []string {
	seen := make(map[string]struct{}, len(addrs))
	rv := make([]string, 0, len(addrs))

	for _, v := range addrs {
		if _, ok := seen[v]; ok {
			continue
		}

		seen[v] = struct{}{}
		rv = append(rv, v)
	}

	sort.Strings(rv)

	return rv
}

func hasProxyMarker(proto capture.Protocol) (bool, error) {
	for i, field := range proto.Fields {
		name, ok := field.Attr(capture.AttrName)
		if !ok {
			return false, errors.Annotatef(ErrNoName, "field %d", i)
		}

		if name != fieldRequestLine {
			continue
		}

		showName, ok := field.Attr(capture.AttrShowName)
		if !ok {
			return false, errors.Annotatef(ErrNoShowName, "field %d", i)
		}

		if showName == ProxyMarker {
			return true, nil
		}
	}

	return false, nil
}

func forwardedFor(proto capture.Protocol) ([]string, error) {
	rv := []string{}

	for i, field := range proto.Fields {
		name, ok := field.Attr(capture.AttrName)
		if !ok {
			return rv, errors.Annotatef(ErrNoName, "field %d", i)
		}

		if name != fieldForwardedFor {
			continue
		}

		show, ok := field.Attr(capture.AttrShow)
		if !ok {
			return rv, errors.Annotatef(ErrNoShow, "field %d", i)
		}

		rv = append(rv, strings.TrimSpace(show))
	}

	return rv, nil
}

func malformed(rv Result, err error) Result {
	rv.Status = StatusMalformed
	rv.Err = err

	return rv
}
