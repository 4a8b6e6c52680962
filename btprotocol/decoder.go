package btprotocol

import (
	"bufio"
	"encoding/binary"
	"io"
	"sync"

	"github.com/wirebt/peerwire/internal/bytesx"
	"github.com/wirebt/peerwire/internal/errorsx"
	"github.com/wirebt/peerwire/internal/langx"
)

// Decoder reads framed messages from a stream oriented transport where
// message boundaries are not aligned with read boundaries.
type Decoder struct {
	R *bufio.Reader
	// MaxLength maximum declared payload length accepted, defaults to 1 MiB.
	MaxLength Integer
	// Pool optional *[]byte frame buffers. decoded messages alias the buffer,
	// callers return it once the message payload is no longer referenced.
	Pool *sync.Pool
}

// Decode the next message from the stream. ext is the current negotiation
// snapshot, supplied per call so a renegotiating session observes the correct
// table. io.EOF is returned iff the source terminates cleanly on a message
// boundary.
func (d *Decoder) Decode(ext *Extended) (msg Message, err error) {
	var (
		length Integer
	)

	if err = length.Read(d.R); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, errorsx.Wrap(err, "reading message length")
	}

	if max := langx.DefaultIfZero[Integer](bytesx.MiB, d.MaxLength); length > max {
		return nil, errorsx.Errorf("message length %d exceeds maximum %d", length, max)
	}

	n, err := u32int(length.Uint32())
	if err != nil {
		return nil, err
	}

	buf := d.buffer(lenPrefixLen + n)
	binary.BigEndian.PutUint32(buf[:lenPrefixLen], length.Uint32())
	if _, err = io.ReadFull(d.R, buf[lenPrefixLen:]); err != nil {
		return nil, errorsx.Wrap(err, "reading message body")
	}

	return ParseBytes(buf, ext)
}

func (d *Decoder) buffer(n int) []byte {
	if d.Pool == nil {
		return make([]byte, n)
	}

	if b := langx.Autoderef(d.Pool.Get().(*[]byte)); cap(b) >= n {
		return b[:n]
	}

	return make([]byte, n)
}
