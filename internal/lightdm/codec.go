package lightdm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	headerSize = 8
	// maxPayload bounds a single frame; CONNECTED hints are the largest
	// thing the daemon sends.
	maxPayload = 1 << 20
)

var ErrMalformed = errors.New("malformed lightdm message")

// Greeter to daemon.
const (
	msgConnect                uint32 = 0
	msgAuthenticate           uint32 = 1
	msgContinueAuthentication uint32 = 3
	msgStartSession           uint32 = 4
	msgCancelAuthentication   uint32 = 5
)

// Daemon to greeter.
const (
	msgConnected            uint32 = 0
	msgPromptAuthentication uint32 = 1
	msgEndAuthentication    uint32 = 2
	msgSessionResult        uint32 = 3
	msgIdle                 uint32 = 5
	msgReset                uint32 = 6
	msgConnectedV2          uint32 = 7
)

// PAM message styles carried in PROMPT_AUTHENTICATION.
const (
	stylePromptEchoOff uint32 = 1
	stylePromptEchoOn  uint32 = 2
	styleErrorMsg      uint32 = 3
	styleTextInfo      uint32 = 4
)

type frame struct {
	id      uint32
	payload []byte
}

func readFrame(r io.Reader) (frame, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return frame{}, err
	}
	id := binary.BigEndian.Uint32(hdr[0:4])
	n := binary.BigEndian.Uint32(hdr[4:8])
	if n > maxPayload {
		return frame{}, fmt.Errorf("%w: message %d claims %d bytes", ErrMalformed, id, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return frame{}, err
	}
	return frame{id: id, payload: payload}, nil
}

func writeFrame(w io.Writer, id uint32, payload []byte) error {
	buf := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], id)
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(payload)))
	copy(buf[headerSize:], payload)
	_, err := w.Write(buf)
	return err
}

type encoder struct {
	buf []byte
}

func (e *encoder) int(v uint32) *encoder {
	e.buf = binary.BigEndian.AppendUint32(e.buf, v)
	return e
}

func (e *encoder) bool(v bool) *encoder {
	if v {
		return e.int(1)
	}
	return e.int(0)
}

func (e *encoder) string(s string) *encoder {
	e.int(uint32(len(s)))
	e.buf = append(e.buf, s...)
	return e
}

func (e *encoder) bytes() []byte { return e.buf }

// decoder reads ints and strings until the first error, which sticks.
type decoder struct {
	b   []byte
	off int
	err error
}

func newDecoder(b []byte) *decoder { return &decoder{b: b} }

func (d *decoder) more() bool { return d.err == nil && d.off < len(d.b) }

func (d *decoder) int() uint32 {
	if d.err != nil {
		return 0
	}
	if len(d.b)-d.off < 4 {
		d.err = fmt.Errorf("%w: short int at offset %d", ErrMalformed, d.off)
		return 0
	}
	v := binary.BigEndian.Uint32(d.b[d.off:])
	d.off += 4
	return v
}

func (d *decoder) string() string {
	n := d.int()
	if d.err != nil {
		return ""
	}
	if uint64(len(d.b)-d.off) < uint64(n) {
		d.err = fmt.Errorf("%w: string of %d bytes at offset %d", ErrMalformed, n, d.off)
		return ""
	}
	s := string(d.b[d.off : d.off+int(n)])
	d.off += int(n)
	return s
}
