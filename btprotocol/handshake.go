package btprotocol

import (
	"bytes"
	"encoding/hex"
	"io"

	"github.com/wirebt/peerwire/internal/errorsx"
)

// Extension bits reserved in the BEP 3 handshake.
const (
	ExtensionBitDHT      uint = 0  // http://www.bittorrent.org/beps/bep_0005.html
	ExtensionBitFast     uint = 2  // http://www.bittorrent.org/beps/bep_0006.html
	ExtensionBitExtended uint = 20 // http://www.bittorrent.org/beps/bep_0010.html
)

const (
	handshakeSize = 28 // protocol (20) + bits (8)
	infoSize      = 40 // hash (20) + peer id (20)
	totalSize     = handshakeSize + infoSize
)

// ExtensionBits the reserved byte block exchanged during the handshake,
// determines which extension grammars are active for the connection.
type ExtensionBits [8]byte

// NewExtensionBits initialize extension bits
func NewExtensionBits(bits ...uint) (ret ExtensionBits) {
	for _, b := range bits {
		ret.SetBit(b)
	}

	return ret
}

func (pex ExtensionBits) String() string {
	return hex.EncodeToString(pex[:])
}

// SupportsExtended ...
func (pex ExtensionBits) SupportsExtended() bool {
	return pex.GetBit(ExtensionBitExtended)
}

// SupportsDHT ...
func (pex ExtensionBits) SupportsDHT() bool {
	return pex.GetBit(ExtensionBitDHT)
}

// SupportsFast ...
func (pex ExtensionBits) SupportsFast() bool {
	return pex.GetBit(ExtensionBitFast)
}

// SetBit ...
func (pex *ExtensionBits) SetBit(bit uint) {
	pex[7-bit/8] |= 1 << (bit % 8)
}

// GetBit ...
func (pex ExtensionBits) GetBit(bit uint) bool {
	return pex[7-bit/8]&(1<<(bit%8)) != 0
}

// Supported returns true iff both sides advertise every one of the bits.
func (pex ExtensionBits) Supported(rpex ExtensionBits, bits ...uint) bool {
	for _, b := range bits {
		if !(pex.GetBit(b) && rpex.GetBit(b)) {
			return false
		}
	}

	return true
}

// HandshakeMessage the leading protocol string and reserved bits.
type HandshakeMessage struct {
	Extensions ExtensionBits
}

// WriteTo write the header to the provided writer.
func (t HandshakeMessage) WriteTo(dst io.Writer) (n int64, err error) {
	var (
		buf [handshakeSize]byte
	)

	copy(buf[:20], []byte(Protocol))
	copy(buf[20:], t.Extensions[:])

	nw, err := dst.Write(buf[:])
	return int64(nw), err
}

// ReadFrom reads a handshake header from a reader.
func (t *HandshakeMessage) ReadFrom(src io.Reader) (n int64, err error) {
	var (
		buf  [handshakeSize]byte
		read int
	)

	if read, err = io.ReadFull(src, buf[:]); err != nil {
		return int64(read), err
	}

	if !bytes.HasPrefix(buf[:], []byte(Protocol)) {
		return int64(read), errorsx.Errorf("unexpected protocol string: %x", buf[:20])
	}

	copy(t.Extensions[:], buf[20:])

	return int64(read), nil
}

// HandshakeInfoMessage sent after the HandshakeMessage containing the
// peers ID and the info hash.
type HandshakeInfoMessage struct {
	PeerID [20]byte
	Hash   [20]byte
}

// WriteTo write the info block to the provided writer.
func (t HandshakeInfoMessage) WriteTo(dst io.Writer) (n int64, err error) {
	var (
		buf [infoSize]byte
	)

	copy(buf[:20], t.Hash[:])
	copy(buf[20:], t.PeerID[:])

	nw, err := dst.Write(buf[:])
	return int64(nw), err
}

// ReadFrom reads an info block from a reader.
func (t *HandshakeInfoMessage) ReadFrom(src io.Reader) (n int64, err error) {
	var (
		buf  [infoSize]byte
		read int
	)

	if read, err = io.ReadFull(src, buf[:]); err != nil {
		return int64(read), err
	}

	copy(t.Hash[:], buf[:20])
	copy(t.PeerID[:], buf[20:])

	return int64(read), nil
}

// Handshake performs the fixed 68 byte exchange that establishes a
// connection and determines which extension grammars are active.
type Handshake struct {
	Bits   ExtensionBits
	PeerID [20]byte
}

// Outgoing handshake, used to establish a connection to a peer.
func (t Handshake) Outgoing(sock io.ReadWriter, hash [20]byte) (resbits ExtensionBits, res HandshakeInfoMessage, err error) {
	var (
		buf [totalSize]byte
	)

	copy(buf[:20], []byte(Protocol))
	copy(buf[20:handshakeSize], t.Bits[:])
	copy(buf[handshakeSize:handshakeSize+20], hash[:])
	copy(buf[handshakeSize+20:], t.PeerID[:])

	var nw int
	if nw, err = sock.Write(buf[:]); err != nil {
		return resbits, res, err
	}
	if nw != totalSize {
		return resbits, res, io.ErrShortWrite
	}

	if _, err = io.ReadFull(sock, buf[:]); err != nil {
		return resbits, res, err
	}

	if !bytes.HasPrefix(buf[:], []byte(Protocol)) {
		return resbits, res, errorsx.Errorf("unexpected protocol string: %x", buf[:20])
	}

	copy(resbits[:], buf[20:handshakeSize])
	copy(res.Hash[:], buf[handshakeSize:handshakeSize+20])
	copy(res.PeerID[:], buf[handshakeSize+20:])

	if !bytes.Equal(res.Hash[:], hash[:]) {
		return resbits, res, errorsx.New("invalid handshake - mismatched hash")
	}

	return resbits, res, nil
}

// Incoming handshake, used to accept a connection from a peer.
func (t Handshake) Incoming(sock io.ReadWriter) (pbits ExtensionBits, pinfo HandshakeInfoMessage, err error) {
	var (
		buf [totalSize]byte
	)

	if _, err = io.ReadFull(sock, buf[:]); err != nil {
		return pbits, pinfo, err
	}

	if !bytes.HasPrefix(buf[:], []byte(Protocol)) {
		return pbits, pinfo, errorsx.Errorf("unexpected protocol string: %x", buf[:20])
	}

	copy(pbits[:], buf[20:handshakeSize])
	copy(pinfo.Hash[:], buf[handshakeSize:handshakeSize+20])
	copy(pinfo.PeerID[:], buf[handshakeSize+20:])

	copy(buf[:20], []byte(Protocol))
	copy(buf[20:handshakeSize], t.Bits[:])
	copy(buf[handshakeSize:handshakeSize+20], pinfo.Hash[:])
	copy(buf[handshakeSize+20:], t.PeerID[:])

	var nw int
	if nw, err = sock.Write(buf[:]); err != nil {
		return pbits, pinfo, err
	}
	if nw != totalSize {
		return pbits, pinfo, io.ErrShortWrite
	}

	return pbits, pinfo, nil
}
