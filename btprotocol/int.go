package btprotocol

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/wirebt/peerwire/internal/errorsx"
)

// ErrIntegerOverflow a wire declared 32 bit count cannot be represented in the
// host's indexing width. a peer sending such a value is malicious or buggy,
// the condition is surfaced as a recoverable decode failure.
const ErrIntegerOverflow = errorsx.String("wire integer overflows host int")

// Integer the wire representation of protocol integers, big endian uint32.
type Integer uint32

func (i *Integer) Read(r io.Reader) error {
	return binary.Read(r, binary.BigEndian, i)
}

// Int ...
func (i Integer) Int() int {
	return int(i)
}

func (i Integer) Uint32() uint32 {
	return uint32(i)
}

// u32int checked conversion from a wire width count to a host index.
func u32int(v uint32) (int, error) {
	if uint64(v) > uint64(math.MaxInt) {
		return 0, ErrIntegerOverflow
	}

	return int(v), nil
}
