package lane

import (
	"bytes"
	"testing"

	"github.com/dreamware/starlane/internal/address"
	"github.com/dreamware/starlane/internal/wave"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello starlane")
	require.NoError(t, WriteFrame(&buf, payload))

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, make([]byte, 0)))
	// Corrupt the length prefix to claim an oversized frame.
	data := buf.Bytes()
	data[0] = 0xFF
	_, err := ReadFrame(bytes.NewReader(data))
	assert.ErrorIs(t, err, wave.ErrIoFailure)
}

func TestWriteReadWaveRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	from := address.NewSurface(address.MustParsePoint("space:app:fae"), address.LayerCore)
	to := address.NewSurface(address.MustParsePoint("space:app:less"), address.LayerCore)
	w := wave.NewPing(from, to, "Chat", wave.Text("hi"))

	require.NoError(t, WriteWave(&buf, w))
	got, err := ReadWave(&buf)
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)
	assert.Equal(t, "hi", got.Body.String())
}

func TestNoPartialFrameDelivered(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("complete")))
	truncated := buf.Bytes()[:buf.Len()-2]
	_, err := ReadFrame(bytes.NewReader(truncated))
	assert.Error(t, err)
}
