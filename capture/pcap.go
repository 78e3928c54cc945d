package capture

import (
	"bytes"
	"io"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
)

const (
	protoHTTP = "http"

	fieldRequestLine   = "http.request.line"
	fieldRequestMethod = "http.request.method"
	fieldForwardedFor  = "http.x_forwarded_for"

	headerForwardedFor = "X-Forwarded-For"

	// PDML exporters render CRLF of header lines as escaped text.
	escapedCRLF = `\r\n`
)

var (
	pcapMagics = [][]byte{
		{0xa1, 0xb2, 0xc3, 0xd4},
		{0xd4, 0xc3, 0xb2, 0xa1},
		{0xa1, 0xb2, 0x3c, 0x4d},
		{0x4d, 0x3c, 0xb2, 0xa1},
	}
	pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

	httpMethods = map[string]bool{
		"GET":     true,
		"POST":    true,
		"PUT":     true,
		"DELETE":  true,
		"HEAD":    true,
		"PATCH":   true,
		"OPTIONS": true,
		"CONNECT": true,
		"TRACE":   true,
	}
)

type packetSource interface {
	gopacket.PacketDataSource

	LinkType() layers.LinkType
}

func isPcap(data []byte) bool {
	if len(data) < 4 {
		return false
	}

	for _, magic := range pcapMagics {
		if bytes.Equal(data[:4], magic) {
			return true
		}
	}

	return isPcapNG(data)
}

func isPcapNG(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], pcapngMagic)
}

// DecodePcap reads pcap or pcapng capture and converts each packet into
// the same structure PDML exporter would produce for the fields we
// care about. Each decoded layer becomes a protocol named after a layer
// type, TCP payloads with HTTP requests become 'http' protocols.
func DecodePcap(data []byte) (*Document, error) {
	src, err := openPcap(data)
	if err != nil {
		return nil, errors.Annotate(err, "Cannot open packet capture")
	}

	doc := &Document{}

	for {
		raw, _, err := src.ReadPacketData()

		switch {
		case err == io.EOF:
			return doc, nil
		case err != nil:
			return nil, errors.Annotatef(err, "Cannot read packet %d", len(doc.Packets)+1)
		}

		pkt := gopacket.NewPacket(raw, src.LinkType(), gopacket.Default)
		doc.Packets = append(doc.Packets, convertPacket(pkt))
	}
}

func openPcap(data []byte) (packetSource, error) {
	if isPcapNG(data) {
		reader, err := pcapgo.NewNgReader(bytes.NewReader(data), pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, errors.Annotate(err, "Cannot read pcapng header")
		}

		return reader, nil
	}

	reader, err := pcapgo.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Annotate(err, "Cannot read pcap header")
	}

	return reader, nil
}

func convertPacket(pkt gopacket.Packet) Packet {
	rv := Packet{}

	for _, layer := range pkt.Layers() {
		switch layer.LayerType() {
		case gopacket.LayerTypePayload, gopacket.LayerTypeDecodeFailure:
			continue
		}

		rv.Protocols = append(rv.Protocols,
			NewProtocol(strings.ToLower(layer.LayerType().String())))
	}

	if errLayer := pkt.ErrorLayer(); errLayer != nil {
		log.WithFields(log.Fields{
			"error": errLayer.Error(),
		}).Debug("Packet is decoded partially")
	}

	app := pkt.ApplicationLayer()
	if app == nil || pkt.Layer(layers.LayerTypeTCP) == nil {
		return rv
	}

	if proto, ok := httpProtocol(app.Payload()); ok {
		rv.Protocols = append(rv.Protocols, proto)
	}

	return rv
}

func httpProtocol(payload []byte) (Protocol, bool) {
	head := string(payload)
	if idx := strings.Index(head, "\r\n\r\n"); idx >= 0 {
		head = head[:idx]
	}

	lines := strings.Split(head, "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}

	method, ok := requestMethod(lines[0])
	if !ok {
		return Protocol{}, false
	}

	proto := NewProtocol(protoHTTP, NewField(AttrName, fieldRequestMethod, AttrShow, method))

	for _, line := range lines[1:] {
		if line == "" {
			break
		}

		rendered := line + escapedCRLF
		proto.Fields = append(proto.Fields, NewField(
			AttrName, fieldRequestLine,
			AttrShowName, rendered,
			AttrShow, rendered))

		colon := strings.IndexByte(line, ':')
		if colon < 0 || !strings.EqualFold(strings.TrimSpace(line[:colon]), headerForwardedFor) {
			continue
		}

		proto.Fields = append(proto.Fields, NewField(
			AttrName, fieldForwardedFor,
			AttrShowName, rendered,
			AttrShow, strings.TrimSpace(line[colon+1:])))
	}

	return proto, true
}

func requestMethod(line string) (string, bool) {
	chunks := strings.Fields(line)
	if len(chunks) != 3 || !httpMethods[chunks[0]] || !strings.HasPrefix(chunks[2], "HTTP/") {
		return "", false
	}

	return chunks[0], true
}
