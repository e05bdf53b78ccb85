package subunit

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func encodeAll(t *testing.T, packets ...Packet) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, p := range packets {
		frame, err := Encode(p)
		require.NoError(t, err)
		buf.Write(frame)
	}
	return buf.Bytes()
}

func TestReadPacket_AllFields(t *testing.T) {
	ts := time.Date(2025, 1, 7, 12, 34, 56, 789000000, time.UTC)
	packet := Packet{
		Status:      StatusFail,
		TestID:      "tests.ATest.fail",
		Timestamp:   ts,
		Tags:        []string{"worker-0", "slow"},
		MimeType:    "text/plain",
		FileName:    "traceback",
		FileContent: []byte("AssertionError: boom\n"),
		RouteCode:   "0",
		Runnable:    true,
		EOF:         true,
	}

	parsed, n, err := readPacket(bytes.NewReader(encodeAll(t, packet)))

	require.NoError(t, err)
	require.Greater(t, n, 0)
	require.Equal(t, packet.Status, parsed.Status)
	require.Equal(t, packet.TestID, parsed.TestID)
	require.True(t, parsed.Timestamp.Equal(ts))
	require.Equal(t, packet.Tags, parsed.Tags)
	require.Equal(t, packet.MimeType, parsed.MimeType)
	require.Equal(t, packet.FileName, parsed.FileName)
	require.Equal(t, packet.FileContent, parsed.FileContent)
	require.Equal(t, packet.RouteCode, parsed.RouteCode)
	require.True(t, parsed.Runnable)
	require.True(t, parsed.EOF)
}

func TestReadPacket_EmptyFileContent(t *testing.T) {
	packet := Packet{Status: StatusSuccess, TestID: "t", FileName: "stdout", FileContent: []byte{}}

	parsed, _, err := readPacket(bytes.NewReader(encodeAll(t, packet)))

	require.NoError(t, err)
	require.Equal(t, "stdout", parsed.FileName)
	require.Empty(t, parsed.FileContent)
}

func TestReadPacket_BinaryContent(t *testing.T) {
	content := make([]byte, 256)
	for i := range content {
		content[i] = byte(i)
	}
	packet := Packet{Status: StatusSuccess, TestID: "t", FileName: "stdout", FileContent: content}

	parsed, _, err := readPacket(bytes.NewReader(encodeAll(t, packet)))

	require.NoError(t, err)
	require.Equal(t, content, parsed.FileContent)
}

func TestReadPacket_EOF(t *testing.T) {
	_, n, err := readPacket(bytes.NewReader(nil))

	require.Equal(t, io.EOF, err)
	require.Equal(t, 0, n)
}

func TestReadPacket_Errors(t *testing.T) {
	valid := encodeAll(t, Packet{Status: StatusSuccess, TestID: "pkg.Test"})

	corrupt := append([]byte(nil), valid...)
	corrupt[5] ^= 0xFF

	wrongVersion := append([]byte(nil), valid...)
	wrongVersion[1] = 0x18

	tests := []struct {
		name  string
		input []byte
		err   error
	}{
		{name: "bad signature", input: []byte{0x00, 0x20, 0x00, 0x08}, err: ErrBadSignature},
		{name: "bad checksum", input: corrupt, err: ErrBadChecksum},
		{name: "bad version", input: wrongVersion, err: ErrBadVersion},
		{name: "truncated header", input: valid[:2], err: io.ErrUnexpectedEOF},
		{name: "truncated body", input: valid[:len(valid)-1], err: io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := readPacket(bytes.NewReader(tt.input))
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestReader_All(t *testing.T) {
	ts := time.Date(2025, 1, 7, 12, 0, 0, 0, time.UTC)
	input := encodeAll(t,
		Packet{Status: StatusInProgress, TestID: "T.a", Timestamp: ts},
		Packet{Status: StatusSuccess, TestID: "T.a", Timestamp: ts.Add(500 * time.Millisecond)},
		Packet{Status: StatusInProgress, TestID: "T.b", Timestamp: ts.Add(500 * time.Millisecond)},
		Packet{Status: StatusFail, TestID: "T.b", Timestamp: ts.Add(1500 * time.Millisecond), MimeType: "text/plain", FileName: "traceback", FileContent: []byte("x")},
	)

	packets, err := NewReader(bytes.NewReader(input)).All()

	require.NoError(t, err)
	require.Len(t, packets, 4)
	require.Equal(t, "T.b", packets[3].TestID)
	require.Equal(t, "x", string(packets[3].FileContent))
	require.True(t, packets[3].Timestamp.Equal(ts.Add(1500*time.Millisecond)))
}

func TestReader_AllStopsAtCorruption(t *testing.T) {
	input := encodeAll(t,
		Packet{Status: StatusInProgress, TestID: "T.a"},
		Packet{Status: StatusSuccess, TestID: "T.a"},
	)
	input = append(input, 0xFF)

	packets, err := NewReader(bytes.NewReader(input)).All()

	require.ErrorIs(t, err, ErrBadSignature)
	require.Contains(t, err.Error(), "offset")
	require.Len(t, packets, 2)
}
