package subunit

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriter_WritePacket(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf)

	ts := time.Date(2025, 1, 7, 12, 34, 56, 789000000, time.UTC)
	err := writer.WritePacket(Packet{Status: StatusInProgress, TestID: "pkg.Test", Timestamp: ts})
	require.NoError(t, err)

	// Nothing reaches the sink before Flush
	require.Equal(t, 0, buf.Len())
	require.NoError(t, writer.Flush())

	packets, err := NewReader(&buf).All()
	require.NoError(t, err)
	require.Len(t, packets, 1)
	require.Equal(t, StatusInProgress, packets[0].Status)
	require.Equal(t, "pkg.Test", packets[0].TestID)
	require.True(t, packets[0].Timestamp.Equal(ts))
	require.Equal(t, 1, writer.Packets())
}

func TestWriter_MultiplePackets(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf)

	for _, status := range []Status{StatusInProgress, StatusSuccess, StatusInProgress, StatusSkip} {
		require.NoError(t, writer.WritePacket(Packet{Status: status, TestID: "t"}))
	}
	require.NoError(t, writer.Flush())

	packets, err := NewReader(&buf).All()
	require.NoError(t, err)
	require.Len(t, packets, 4)
	require.Equal(t, StatusSkip, packets[3].Status)
	require.Equal(t, 4, writer.Packets())
}

func TestWriter_EncodeErrorWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf)

	err := writer.WritePacket(Packet{
		Status:      StatusFail,
		TestID:      "huge",
		FileName:    "traceback",
		FileContent: make([]byte, MaxPacketLength+1),
	})
	require.ErrorIs(t, err, ErrPacketTooLarge)
	var encodeErr *EncodeError
	require.ErrorAs(t, err, &encodeErr)
	require.Equal(t, "huge", encodeErr.TestID)
	require.NoError(t, writer.Flush())
	require.Equal(t, 0, buf.Len())
	require.Equal(t, 0, writer.Packets())
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestWriter_SinkError(t *testing.T) {
	writer := NewWriter(failingWriter{})

	// Small packets are buffered, the failure shows up on Flush
	require.NoError(t, writer.WritePacket(Packet{Status: StatusSuccess, TestID: "t"}))
	err := writer.Flush()
	require.Error(t, err)
	require.Contains(t, err.Error(), "broken pipe")
}
