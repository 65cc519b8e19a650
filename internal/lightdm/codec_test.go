package lightdm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := (&encoder{}).int(7).string("alice").bool(true).string("").bytes()
	require.NoError(t, writeFrame(&buf, msgAuthenticate, payload))

	assert.Equal(t, []byte{0, 0, 0, 1, 0, 0, 0, 21}, buf.Bytes()[:headerSize])

	f, err := readFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, msgAuthenticate, f.id)

	d := newDecoder(f.payload)
	assert.Equal(t, uint32(7), d.int())
	assert.Equal(t, "alice", d.string())
	assert.Equal(t, uint32(1), d.int())
	assert.Equal(t, "", d.string())
	assert.False(t, d.more())
	assert.NoError(t, d.err)
}

func TestReadFrameTooLarge(t *testing.T) {
	b := []byte{0, 0, 0, 1, 0xff, 0xff, 0xff, 0xff}
	_, err := readFrame(bytes.NewReader(b))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecoderShortInput(t *testing.T) {
	d := newDecoder([]byte{0, 0, 0, 9, 'a', 'b'})
	assert.Equal(t, "", d.string())
	assert.ErrorIs(t, d.err, ErrMalformed)

	// Errors stick.
	assert.Equal(t, uint32(0), d.int())
	assert.False(t, d.more())

	d = newDecoder([]byte{0, 1})
	d.int()
	assert.ErrorIs(t, d.err, ErrMalformed)
}
