package capture

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/juju/errors"
)

type pdmlRoot struct {
	XMLName xml.Name
	Packets []pdmlPacket `xml:"packet"`
}

type pdmlPacket struct {
	Protos []pdmlProto `xml:"proto"`
}

type pdmlProto struct {
	Attrs  []xml.Attr  `xml:",any,attr"`
	Fields []pdmlField `xml:"field"`
}

// Nested fields are not interesting: only direct children of the
// protocol are taken.
type pdmlField struct {
	Attrs []xml.Attr `xml:",any,attr"`
}

// DecodePDML parses PDML document produced by tshark or Wireshark.
// Any syntax error in the document is returned as is, there is no
// attempt to recover a partial document. Only whitespace, comments and
// processing instructions may follow the root element.
func DecodePDML(data []byte) (*Document, error) {
	root := pdmlRoot{}
	decoder := xml.NewDecoder(bytes.NewReader(data))

	if err := decoder.Decode(&root); err != nil {
		return nil, errors.Annotate(err, "Cannot parse PDML document")
	}

	if err := checkTrailer(decoder); err != nil {
		return nil, errors.Annotate(err, "Cannot parse PDML document")
	}

	doc := &Document{Packets: make([]Packet, 0, len(root.Packets))}

	for _, rawPacket := range root.Packets {
		packet := Packet{Protocols: make([]Protocol, 0, len(rawPacket.Protos))}

		for _, rawProto := range rawPacket.Protos {
			proto := Protocol{
				Attributes: attrMap(rawProto.Attrs),
				Fields:     make([]Field, 0, len(rawProto.Fields)),
			}

			for _, rawField := range rawProto.Fields {
				proto.Fields = append(proto.Fields, Field{Attributes: attrMap(rawField.Attrs)})
			}

			packet.Protocols = append(packet.Protocols, proto)
		}

		doc.Packets = append(doc.Packets, packet)
	}

	return doc, nil
}

func checkTrailer(decoder *xml.Decoder) error {
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch value := token.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(value)) != 0 {
				return errors.Errorf("Junk after document element: %q", string(value))
			}
		default:
			return errors.Errorf("Junk after document element: %T", token)
		}
	}
}

func attrMap(attrs []xml.Attr) map[string]string {
	rv := make(map[string]string, len(attrs))

	for _, v := range attrs {
		rv[v.Name.Local] = v.Value
	}

	return rv
}
