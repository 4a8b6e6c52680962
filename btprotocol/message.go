package btprotocol

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/wirebt/peerwire/internal/bitmapx"
)

// Message a single peer wire protocol message. the set of implementations is
// closed: keep alives, the eight fixed purpose messages from BEP 3, the
// reserved bit extension messages, and the extension protocol messages.
// messages exclusively own their payload buffers and never retain the
// negotiation snapshot, it is supplied per call.
type Message interface {
	// MessageSize the total encoded size in bytes, including the 4 byte
	// length prefix. always agrees with the byte count WriteBytes produces.
	MessageSize() int
	writeBytes(dst io.Writer, ext *Extended) error
}

// WriteBytes encodes m into dst exactly as a conformant peer expects. ext
// resolves negotiated extension ids and may be nil when no extension protocol
// message is being written.
func WriteBytes(dst io.Writer, m Message, ext *Extended) error {
	return m.writeBytes(dst, ext)
}

// Marshal encode m into a freshly allocated buffer.
func Marshal(m Message, ext *Extended) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, m.MessageSize()))
	if err := m.writeBytes(buf, ext); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// writeLengthID the shared header, a 4 byte length followed by the id byte.
func writeLengthID(dst io.Writer, length uint32, id MessageType) error {
	var (
		buf [headerLen]byte
	)

	binary.BigEndian.PutUint32(buf[:lenPrefixLen], length)
	buf[lenPrefixLen] = byte(id)

	_, err := dst.Write(buf[:])
	return err
}

// KeepAliveMessage periodically written to hold the connection open.
type KeepAliveMessage struct{}

func (KeepAliveMessage) MessageSize() int {
	return lenPrefixLen + keepAliveLen
}

func (KeepAliveMessage) writeBytes(dst io.Writer, _ *Extended) error {
	// always the minimal 4 byte form. the historical trailing zero id
	// encoding is accepted on decode only.
	var buf [lenPrefixLen]byte
	_, err := dst.Write(buf[:])
	return err
}

// ChokeMessage tells a peer we will not be responding to their requests.
type ChokeMessage struct{}

func (ChokeMessage) MessageSize() int {
	return lenPrefixLen + chokeLen
}

func (ChokeMessage) writeBytes(dst io.Writer, _ *Extended) error {
	return writeLengthID(dst, chokeLen, Choke)
}

// UnchokeMessage tells a peer we will now be responding to their requests.
type UnchokeMessage struct{}

func (UnchokeMessage) MessageSize() int {
	return lenPrefixLen + unchokeLen
}

func (UnchokeMessage) writeBytes(dst io.Writer, _ *Extended) error {
	return writeLengthID(dst, unchokeLen, Unchoke)
}

// InterestedMessage tells a peer we want to download pieces from them.
type InterestedMessage struct{}

func (InterestedMessage) MessageSize() int {
	return lenPrefixLen + interestedLen
}

func (InterestedMessage) writeBytes(dst io.Writer, _ *Extended) error {
	return writeLengthID(dst, interestedLen, Interested)
}

// NotInterestedMessage tells a peer we no longer want pieces from them.
type NotInterestedMessage struct{}

func (NotInterestedMessage) MessageSize() int {
	return lenPrefixLen + notInterestedLen
}

func (NotInterestedMessage) writeBytes(dst io.Writer, _ *Extended) error {
	return writeLengthID(dst, notInterestedLen, NotInterested)
}

// HaveMessage announces a fully validated piece.
type HaveMessage struct {
	Index Integer
}

func (HaveMessage) MessageSize() int {
	return lenPrefixLen + haveLen
}

func (t HaveMessage) writeBytes(dst io.Writer, _ *Extended) error {
	var (
		buf [lenPrefixLen + haveLen]byte
	)

	binary.BigEndian.PutUint32(buf[:lenPrefixLen], haveLen)
	buf[lenPrefixLen] = byte(Have)
	binary.BigEndian.PutUint32(buf[headerLen:], t.Index.Uint32())

	_, err := dst.Write(buf[:])
	return err
}

// BitfieldMessage compact per piece ownership bitmap, sent once near
// connection start. bit i, most significant first within each byte, set means
// piece i is owned.
type BitfieldMessage struct {
	Field []byte
}

// NewBitfield build the bitmap for a swarm of n pieces from the owned set.
func NewBitfield(n uint64, m *roaring.Bitmap) BitfieldMessage {
	field := make([]byte, (n+7)/8)
	for i, have := range bitmapx.Bools(int(n), bitmapx.Lazy(m)) {
		if !have {
			continue
		}
		field[i/8] |= 1 << uint(7-i%8)
	}

	return BitfieldMessage{Field: field}
}

// Has report ownership of the given piece.
func (t BitfieldMessage) Has(piece uint64) bool {
	if piece/8 >= uint64(len(t.Field)) {
		return false
	}

	return t.Field[piece/8]&(1<<(7-piece%8)) != 0
}

func (t BitfieldMessage) MessageSize() int {
	return lenPrefixLen + bitfieldBaseLen + len(t.Field)
}

func (t BitfieldMessage) writeBytes(dst io.Writer, _ *Extended) error {
	if err := writeLengthID(dst, uint32(bitfieldBaseLen+len(t.Field)), Bitfield); err != nil {
		return err
	}

	_, err := dst.Write(t.Field)
	return err
}

// RequestMessage requests a block, a byte range within a piece.
type RequestMessage struct {
	Index  Integer
	Begin  Integer
	Length Integer
}

func (RequestMessage) MessageSize() int {
	return lenPrefixLen + requestLen
}

func (t RequestMessage) writeBytes(dst io.Writer, _ *Extended) error {
	return writeBlockSpec(dst, requestLen, Request, t.Index, t.Begin, t.Length)
}

// CancelMessage cancels a previously requested block.
type CancelMessage struct {
	Index  Integer
	Begin  Integer
	Length Integer
}

func (CancelMessage) MessageSize() int {
	return lenPrefixLen + cancelLen
}

func (t CancelMessage) writeBytes(dst io.Writer, _ *Extended) error {
	return writeBlockSpec(dst, cancelLen, Cancel, t.Index, t.Begin, t.Length)
}

// request and cancel share an identical layout.
func writeBlockSpec(dst io.Writer, length uint32, id MessageType, index, begin, l Integer) error {
	var (
		buf [lenPrefixLen + requestLen]byte
	)

	binary.BigEndian.PutUint32(buf[:lenPrefixLen], length)
	buf[lenPrefixLen] = byte(id)
	binary.BigEndian.PutUint32(buf[headerLen:], index.Uint32())
	binary.BigEndian.PutUint32(buf[headerLen+4:], begin.Uint32())
	binary.BigEndian.PutUint32(buf[headerLen+8:], l.Uint32())

	_, err := dst.Write(buf[:])
	return err
}

// PieceMessage carries a block of piece data. no upper bound on the block is
// enforced here, that policy belongs to the connection layer.
type PieceMessage struct {
	Index Integer
	Begin Integer
	Block []byte
}

func (t PieceMessage) MessageSize() int {
	return lenPrefixLen + pieceBaseLen + len(t.Block)
}

func (t PieceMessage) writeBytes(dst io.Writer, _ *Extended) error {
	var (
		buf [lenPrefixLen + pieceBaseLen]byte
	)

	binary.BigEndian.PutUint32(buf[:lenPrefixLen], uint32(pieceBaseLen+len(t.Block)))
	buf[lenPrefixLen] = byte(Piece)
	binary.BigEndian.PutUint32(buf[headerLen:], t.Index.Uint32())
	binary.BigEndian.PutUint32(buf[headerLen+4:], t.Begin.Uint32())

	if _, err := dst.Write(buf[:]); err != nil {
		return err
	}

	_, err := dst.Write(t.Block)
	return err
}
