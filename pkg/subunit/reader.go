// Package subunit implements the Subunit v2 protocol. See doc.go for docs.
package subunit

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"time"
)

var (
	ErrBadSignature = errors.New("bad subunit packet signature")
	ErrBadVersion   = errors.New("unsupported subunit protocol version")
	ErrBadChecksum  = errors.New("subunit packet checksum mismatch")
)

type PacketReader interface {
	// Next returns the next packet. It returns io.EOF when the stream ends
	// cleanly between packets.
	Next() (Packet, error)

	// All reads packets until the end of the stream.
	All() ([]Packet, error)
}

type Reader struct {
	r      *bufio.Reader
	offset int64
}

var _ PacketReader = &Reader{}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

func (r *Reader) Next() (Packet, error) {
	start := r.offset
	p, n, err := readPacket(r.r)
	r.offset += int64(n)
	if err != nil {
		if err == io.EOF {
			return p, err
		}
		return p, fmt.Errorf("packet at offset %d: %w", start, err)
	}
	return p, nil
}

func (r *Reader) All() ([]Packet, error) {
	var packets []Packet
	for {
		p, err := r.Next()
		if err == io.EOF {
			return packets, nil
		}
		if err != nil {
			return packets, err
		}
		packets = append(packets, p)
	}
}

// readPacket reads one framed packet and returns it along with the number
// of bytes consumed.
func readPacket(reader io.Reader) (Packet, int, error) {
	var p Packet

	header := make([]byte, 4)
	n, err := io.ReadFull(reader, header[:1])
	if err != nil {
		// Nothing read at all is a clean end of stream.
		return p, n, err
	}
	if header[0] != Signature {
		return p, n, fmt.Errorf("%w: 0x%02X", ErrBadSignature, header[0])
	}

	m, err := io.ReadFull(reader, header[1:4])
	n += m
	if err != nil {
		return p, n, fmt.Errorf("reading flags: %w", noEOF(err))
	}
	flags := binary.BigEndian.Uint16(header[1:3])
	if flags>>12 != version {
		return p, n, fmt.Errorf("%w: %d", ErrBadVersion, flags>>12)
	}

	// header[3] is the first byte of the length field.
	lengthSize := int(header[3]>>6) + 1
	lengthBytes := append([]byte{header[3]}, make([]byte, lengthSize-1)...)
	m, err = io.ReadFull(reader, lengthBytes[1:])
	n += m
	if err != nil {
		return p, n, fmt.Errorf("reading length: %w", noEOF(err))
	}
	total, _, err := decodeNumber(lengthBytes)
	if err != nil {
		return p, n, fmt.Errorf("reading length: %w", err)
	}
	headerSize := 3 + lengthSize
	if int(total) < headerSize+4 || total > MaxPacketLength {
		return p, n, fmt.Errorf("invalid packet length %d", total)
	}

	frame := make([]byte, total)
	copy(frame, header[:3])
	copy(frame[3:], lengthBytes)
	m, err = io.ReadFull(reader, frame[headerSize:])
	n += m
	if err != nil {
		return p, n, fmt.Errorf("reading packet body (%d bytes): %w", int(total)-headerSize, noEOF(err))
	}

	crcOffset := len(frame) - 4
	want := binary.BigEndian.Uint32(frame[crcOffset:])
	if got := crc32.ChecksumIEEE(frame[:crcOffset]); got != want {
		return p, n, fmt.Errorf("%w: got 0x%08X, want 0x%08X", ErrBadChecksum, got, want)
	}

	p, err = decodeBody(flags, frame[headerSize:crcOffset])
	return p, n, err
}

func decodeBody(flags uint16, body []byte) (Packet, error) {
	p := Packet{
		Status:   Status(flags & statusMask),
		Runnable: flags&FlagRunnable != 0,
		EOF:      flags&FlagEOF != 0,
	}
	d := &decoder{buf: body}

	if flags&FlagTimestamp != 0 {
		secs := d.uint32()
		nanos := d.number()
		if d.err != nil {
			return p, fmt.Errorf("reading timestamp: %w", d.err)
		}
		p.Timestamp = time.Unix(int64(secs), int64(nanos)).UTC()
	}
	if flags&FlagTestID != 0 {
		p.TestID = d.string()
	}
	if flags&FlagTags != 0 {
		count := d.number()
		for i := uint32(0); i < count && d.err == nil; i++ {
			p.Tags = append(p.Tags, d.string())
		}
	}
	if flags&FlagMimeType != 0 {
		p.MimeType = d.string()
	}
	if flags&FlagFileContent != 0 {
		p.FileName = d.string()
		p.FileContent = d.bytes(int(d.number()))
	}
	if flags&FlagRouteCode != 0 {
		p.RouteCode = d.string()
	}
	if d.err != nil {
		return p, fmt.Errorf("decoding packet body: %w", d.err)
	}
	if len(d.buf) != 0 {
		return p, fmt.Errorf("decoding packet body: %d trailing bytes", len(d.buf))
	}
	return p, nil
}

// decoder consumes fields from a packet body. After the first error every
// call is a no-op and d.err holds that error.
type decoder struct {
	buf []byte
	err error
}

func (d *decoder) uint32() uint32 {
	b := d.bytes(4)
	if d.err != nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (d *decoder) number() uint32 {
	if d.err != nil {
		return 0
	}
	v, size, err := decodeNumber(d.buf)
	if err != nil {
		d.err = err
		return 0
	}
	d.buf = d.buf[size:]
	return v
}

func (d *decoder) string() string {
	return string(d.bytes(int(d.number())))
}

func (d *decoder) bytes(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n > len(d.buf) {
		d.err = io.ErrUnexpectedEOF
		return nil
	}
	b := append([]byte(nil), d.buf[:n]...)
	d.buf = d.buf[n:]
	return b
}

func decodeNumber(b []byte) (uint32, int, error) {
	if len(b) == 0 {
		return 0, 0, io.ErrUnexpectedEOF
	}
	size := int(b[0]>>6) + 1
	if len(b) < size {
		return 0, 0, io.ErrUnexpectedEOF
	}
	v := uint32(b[0] & 0x3F)
	for _, c := range b[1:size] {
		v = v<<8 | uint32(c)
	}
	return v, size, nil
}

func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
