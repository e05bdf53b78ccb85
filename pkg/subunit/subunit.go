// Package subunit implements the Subunit v2 protocol. See doc.go for docs.
package subunit

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
	"time"
	"unicode/utf8"
)

const (
	Signature byte = 0xB3

	// MaxPacketLength is the largest packet the protocol allows.
	MaxPacketLength = 4 * 1024 * 1024

	maxNumber = 1<<30 - 1
	version   = 0x2
)

const (
	FlagTestID      uint16 = 0x0800
	FlagRouteCode   uint16 = 0x0400
	FlagTimestamp   uint16 = 0x0200
	FlagRunnable    uint16 = 0x0100
	FlagTags        uint16 = 0x0080
	FlagFileContent uint16 = 0x0040
	FlagMimeType    uint16 = 0x0020
	FlagEOF         uint16 = 0x0010

	statusMask uint16 = 0x0007
)

var (
	ErrPacketTooLarge = errors.New("subunit packet exceeds maximum length")
	ErrNumberTooLarge = errors.New("number too large for subunit encoding")
)

// Status is the test status carried in the low bits of the flags.
type Status uint8

const (
	StatusUndefined Status = iota
	StatusExists
	StatusInProgress
	StatusSuccess
	StatusUnexpectedSuccess
	StatusSkip
	StatusFail
	StatusExpectedFail
)

var statusNames = [...]string{
	StatusUndefined:         "",
	StatusExists:            "exists",
	StatusInProgress:        "inprogress",
	StatusSuccess:           "success",
	StatusUnexpectedSuccess: "uxsuccess",
	StatusSkip:              "skip",
	StatusFail:              "fail",
	StatusExpectedFail:      "xfail",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// ParseStatus returns the Status for a protocol status name such as
// "inprogress" or "fail". The empty string maps to StatusUndefined.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return StatusUndefined, fmt.Errorf("unknown subunit status %q", name)
}

// Packet is one Subunit v2 event. Optional fields are omitted from the wire
// when empty: a zero Timestamp, an empty TestID, MimeType or RouteCode, nil
// Tags. File content is written when FileName is set, even if FileContent
// is empty.
type Packet struct {
	Status      Status
	TestID      string
	Timestamp   time.Time
	Tags        []string
	MimeType    string
	FileName    string
	FileContent []byte
	RouteCode   string
	Runnable    bool
	EOF         bool
}

// Encode serializes a packet into its framed wire form.
func Encode(p Packet) ([]byte, error) {
	flags := uint16(version)<<12 | uint16(p.Status)&statusMask

	var body []byte
	var err error
	if !p.Timestamp.IsZero() {
		flags |= FlagTimestamp
		secs := p.Timestamp.Unix()
		if secs < 0 || secs > math.MaxUint32 {
			return nil, fmt.Errorf("timestamp %s out of range", p.Timestamp)
		}
		body = binary.BigEndian.AppendUint32(body, uint32(secs))
		if body, err = appendNumber(body, uint32(p.Timestamp.Nanosecond())); err != nil {
			return nil, err
		}
	}
	if p.TestID != "" {
		flags |= FlagTestID
		if body, err = appendString(body, p.TestID); err != nil {
			return nil, err
		}
	}
	if len(p.Tags) > 0 {
		flags |= FlagTags
		if body, err = appendNumber(body, uint32(len(p.Tags))); err != nil {
			return nil, err
		}
		for _, tag := range p.Tags {
			if body, err = appendString(body, tag); err != nil {
				return nil, err
			}
		}
	}
	if p.Runnable {
		flags |= FlagRunnable
	}
	if p.MimeType != "" {
		flags |= FlagMimeType
		if body, err = appendString(body, p.MimeType); err != nil {
			return nil, err
		}
	}
	if p.FileName != "" {
		flags |= FlagFileContent
		if body, err = appendString(body, p.FileName); err != nil {
			return nil, err
		}
		if len(p.FileContent) > MaxPacketLength {
			return nil, ErrPacketTooLarge
		}
		if body, err = appendNumber(body, uint32(len(p.FileContent))); err != nil {
			return nil, err
		}
		body = append(body, p.FileContent...)
	}
	if p.EOF {
		flags |= FlagEOF
	}
	if p.RouteCode != "" {
		flags |= FlagRouteCode
		if body, err = appendString(body, p.RouteCode); err != nil {
			return nil, err
		}
	}

	// signature + flags + body + crc, plus however many bytes the length
	// field itself needs.
	base := 1 + 2 + len(body) + 4
	total := 0
	for n := 1; n <= 4; n++ {
		if numberSize(uint32(base+n)) == n {
			total = base + n
			break
		}
	}
	if total == 0 || total > MaxPacketLength {
		return nil, ErrPacketTooLarge
	}

	packet := make([]byte, 0, total)
	packet = append(packet, Signature)
	packet = binary.BigEndian.AppendUint16(packet, flags)
	if packet, err = appendNumber(packet, uint32(total)); err != nil {
		return nil, err
	}
	packet = append(packet, body...)
	packet = binary.BigEndian.AppendUint32(packet, crc32.ChecksumIEEE(packet))
	return packet, nil
}

// TruncateFileContent shortens p.FileContent so that p encodes within
// MaxPacketLength, never splitting a UTF-8 sequence. It reports whether
// anything was cut.
func TruncateFileContent(p Packet) (Packet, bool) {
	if p.FileName == "" || len(p.FileContent) == 0 {
		return p, false
	}
	empty := p
	empty.FileContent = nil
	frame, err := Encode(empty)
	if err != nil {
		return p, false
	}
	// the content length and the total length fields grow by up to 3 bytes each
	limit := MaxPacketLength - len(frame) - 6
	if limit < 0 || len(p.FileContent) <= limit {
		return p, false
	}

	content := p.FileContent[:limit]
	for i := len(content) - 1; i >= 0 && i >= len(content)-utf8.UTFMax; i-- {
		if utf8.RuneStart(content[i]) {
			if !utf8.FullRune(content[i:]) {
				content = content[:i]
			}
			break
		}
	}
	p.FileContent = content
	return p, true
}

func numberSize(v uint32) int {
	switch {
	case v < 1<<6:
		return 1
	case v < 1<<14:
		return 2
	case v < 1<<22:
		return 3
	default:
		return 4
	}
}

func appendNumber(b []byte, v uint32) ([]byte, error) {
	if v > maxNumber {
		return b, ErrNumberTooLarge
	}
	switch numberSize(v) {
	case 1:
		return append(b, byte(v)), nil
	case 2:
		return binary.BigEndian.AppendUint16(b, uint16(v)|0x4000), nil
	case 3:
		v |= 0x800000
		return append(b, byte(v>>16), byte(v>>8), byte(v)), nil
	default:
		return binary.BigEndian.AppendUint32(b, v|0xC0000000), nil
	}
}

func appendString(b []byte, s string) ([]byte, error) {
	b, err := appendNumber(b, uint32(len(s)))
	if err != nil {
		return b, err
	}
	return append(b, s...), nil
}
