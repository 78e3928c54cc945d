// Package capture contains a model of the packet description document
// and decoders which build it from PDML exports or raw packet captures.
//
// The model is intentionally loose: packets hold protocols, protocols
// hold fields, and both protocols and fields are described by a set of
// free-form attributes. Absence of an attribute is observable, so
// consumers can distinguish broken records from empty values.
package capture

const (
	// AttrName is an attribute which identifies protocols and fields.
	AttrName = "name"

	// AttrShowName is a human-readable rendering of the field.
	AttrShowName = "showname"

	// AttrShow is a display value of the field.
	AttrShow = "show"
)

type Field struct {
	Attributes map[string]string
}

// Attr returns a value of the attribute and a flag if it is present.
func (f Field) Attr(name string) (string, bool) {
	value, ok := f.Attributes[name]

	return value, ok
}

type Protocol struct {
	Attributes map[string]string
	Fields     []Field
}

// Name returns a name of the protocol layer like 'http' or 'tcp'.
func (p Protocol) Name() (string, bool) {
	value, ok := p.Attributes[AttrName]

	return value, ok
}

type Packet struct {
	Protocols []Protocol
}

type Document struct {
	Packets []Packet
}

// NewField is a shortcut to build a field from name/value pairs.
func NewField(attrs ...string) Field {
	return Field{Attributes: pairs(attrs)}
}

// NewProtocol is a shortcut to build a protocol with a given name.
func NewProtocol(name string, fields ...Field) Protocol {
	return Protocol{
		Attributes: map[string]string{AttrName: name},
		Fields:     fields,
	}
}

func pairs(attrs []string) map[string]string {
	rv := make(map[string]string, len(attrs)/2)

	for i := 0; i+1 < len(attrs); i += 2 {
		rv[attrs[i]] = attrs[i+1]
	}

	return rv
}
