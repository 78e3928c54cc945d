package capture

import (
	"bytes"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// ErrUnknownFormat is returned if content is neither PDML nor packet
// capture.
var ErrUnknownFormat = errors.New("unknown format of the capture")

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// Load reads the whole file into memory and decodes it.
func Load(fs afero.Fs, path string) (*Document, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Annotatef(err, "Cannot read %s", path)
	}

	doc, err := Decode(data)
	if err != nil {
		return nil, errors.Annotatef(err, "Cannot decode %s", path)
	}

	log.WithFields(log.Fields{
		"path":    path,
		"size":    len(data),
		"packets": len(doc.Packets),
	}).Debug("Capture is loaded.")

	return doc, nil
}

// Decode chooses a decoder based on the content.
func Decode(data []byte) (*Document, error) {
	if isPcap(data) {
		return DecodePcap(data)
	}

	text := bytes.TrimPrefix(data, utf8BOM)
	text = bytes.TrimLeft(text, " \t\r\n")

	if len(text) > 0 && text[0] == '<' {
		return DecodePDML(text)
	}

	return nil, ErrUnknownFormat
}
