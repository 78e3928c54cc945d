package capture_test

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/juju/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"

	"github.com/viaorg/viaorg/capture"
)

const samplePDML = `<?xml version="1.0" encoding="utf-8"?>
<pdml version="0" creator="wireshark/3.2.3">
<packet>
  <proto name="geninfo" pos="0" showname="General information" size="422">
    <field name="num" pos="0" show="1" showname="Number" value="1" size="422"/>
  </proto>
  <proto name="http" showname="Hypertext Transfer Protocol" size="356" pos="66">
    <field show="GET / HTTP/1.1\r\n" size="16" pos="66">
      <field name="http.request.method" showname="Request Method: GET" show="GET"/>
    </field>
    <field name="http.request.line" showname="Via: Internet.org\r\n" hide="yes" show="Via: Internet.org\r\n"/>
    <field name="http.x_forwarded_for" showname="X-Forwarded-For: 81.2.69.142\r\n" show=" 81.2.69.142 "/>
  </proto>
</packet>
<packet>
  <proto name="tcp"/>
</packet>
</pdml>`

type CaptureTestSuite struct {
	suite.Suite

	fs afero.Fs
}

func (suite *CaptureTestSuite) SetupTest() {
	suite.fs = afero.NewMemMapFs()
}

func (suite *CaptureTestSuite) WriteFile(name string, data []byte) {
	suite.NoError(afero.WriteFile(suite.fs, name, data, 0644))
}

func (suite *CaptureTestSuite) TestPDML() {
	suite.WriteFile("input.xml", []byte(samplePDML))

	doc, err := capture.Load(suite.fs, "input.xml")

	suite.NoError(err)
	suite.Len(doc.Packets, 2)
	suite.Len(doc.Packets[0].Protocols, 2)
	suite.Len(doc.Packets[1].Protocols, 1)

	http := doc.Packets[0].Protocols[1]
	name, ok := http.Name()

	suite.True(ok)
	suite.Equal("http", name)
	suite.Len(http.Fields, 3)

	_, ok = http.Fields[0].Attr(capture.AttrName)
	suite.False(ok)

	showName, ok := http.Fields[1].Attr(capture.AttrShowName)
	suite.True(ok)
	suite.Equal(`Via: Internet.org\r\n`, showName)

	show, _ := http.Fields[2].Attr(capture.AttrShow)
	suite.Equal(" 81.2.69.142 ", show)
}

func (suite *CaptureTestSuite) TestPDMLWithBOM() {
	data := append([]byte{0xef, 0xbb, 0xbf, '\n'}, []byte(samplePDML)...)

	doc, err := capture.Decode(data)

	suite.NoError(err)
	suite.Len(doc.Packets, 2)
}

func (suite *CaptureTestSuite) TestPDMLMissingName() {
	doc, err := capture.Decode([]byte(`<pdml><packet><proto showname="x"/></packet></pdml>`))

	suite.NoError(err)

	_, ok := doc.Packets[0].Protocols[0].Name()
	suite.False(ok)
}

func (suite *CaptureTestSuite) TestBrokenPDML() {
	_, err := capture.Decode([]byte(`<pdml><packet><proto name="http"></packet>`))

	suite.Error(err)
}

func (suite *CaptureTestSuite) TestPDMLTrailingJunk() {
	for _, data := range []string{
		`<pdml><packet><proto name="tcp"/></packet></pdml><packet>`,
		`<pdml></pdml>garbage & <<`,
		`<pdml></pdml><pdml></pdml>`,
		`<pdml></pdml>text`,
	} {
		_, err := capture.DecodePDML([]byte(data))
		suite.Error(err, data)
	}
}

func (suite *CaptureTestSuite) TestPDMLTrailer() {
	doc, err := capture.DecodePDML([]byte("<pdml><packet/></pdml>\n<!-- end -->\n<?done?>\n  "))

	suite.NoError(err)
	suite.Len(doc.Packets, 1)
}

func (suite *CaptureTestSuite) TestUnknownFormat() {
	_, err := capture.Decode([]byte("hello world"))

	suite.True(errors.Cause(err) == capture.ErrUnknownFormat)
}

func (suite *CaptureTestSuite) TestNoFile() {
	_, err := capture.Load(suite.fs, "absent.pdml")

	suite.Error(err)
}

func (suite *CaptureTestSuite) TestPcap() {
	buf := &bytes.Buffer{}
	writer := pcapgo.NewWriter(buf)

	suite.NoError(writer.WriteFileHeader(65536, layers.LinkTypeEthernet))

	suite.WritePacket(writer, "GET / HTTP/1.1\r\nHost: example.org\r\nVia: Internet.org\r\nX-Forwarded-For: 81.2.69.142\r\n\r\n")
	suite.WritePacket(writer, "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n")

	suite.WriteFile("input.pcap", buf.Bytes())

	doc, err := capture.Load(suite.fs, "input.pcap")

	suite.NoError(err)
	suite.Len(doc.Packets, 2)

	names := []string{}
	for _, v := range doc.Packets[0].Protocols {
		name, _ := v.Name()
		names = append(names, name)
	}

	suite.Equal([]string{"ethernet", "ipv4", "tcp", "http"}, names)

	http := doc.Packets[0].Protocols[3]
	suite.Len(http.Fields, 5)

	showName, _ := http.Fields[2].Attr(capture.AttrShowName)
	suite.Equal(`Via: Internet.org\r\n`, showName)

	fieldName, _ := http.Fields[4].Attr(capture.AttrName)
	show, _ := http.Fields[4].Attr(capture.AttrShow)
	suite.Equal("http.x_forwarded_for", fieldName)
	suite.Equal("81.2.69.142", show)

	for _, v := range doc.Packets[1].Protocols {
		name, _ := v.Name()
		suite.NotEqual("http", name)
	}
}

func (suite *CaptureTestSuite) WritePacket(writer *pcapgo.Writer, payload string) {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x01, 0x02, 0x03, 0x04, 0x05},
		DstMAC:       net.HardwareAddr{0x00, 0x05, 0x04, 0x03, 0x02, 0x01},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IPv4(10, 0, 0, 1),
		DstIP:    net.IPv4(10, 0, 0, 2),
	}
	tcp := &layers.TCP{
		SrcPort: 40000,
		DstPort: 80,
		Seq:     1,
		ACK:     true,
		PSH:     true,
		Window:  1024,
	}

	suite.NoError(tcp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}

	suite.NoError(gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload(payload)))

	data := buf.Bytes()
	suite.NoError(writer.WritePacket(gopacket.CaptureInfo{
		Timestamp:     time.Unix(1600000000, 0),
		CaptureLength: len(data),
		Length:        len(data),
	}, data))
}

func TestCapture(t *testing.T) {
	suite.Run(t, &CaptureTestSuite{})
}
