package btprotocol

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/zeebo/bencode"

	"github.com/wirebt/peerwire/internal/errorsx"
	"github.com/wirebt/peerwire/internal/langx"
)

// ErrExtensionNotNegotiated encoding an extension protocol message requires
// the session table to map its name to the id the remote expects.
const ErrExtensionNotNegotiated = errorsx.String("extension not negotiated")

// writeExtended the generic extension envelope: the shared header with the
// Extended id, then the envelope id byte, then the payload.
func writeExtended(dst io.Writer, id ExtensionNumber, payload []byte) error {
	var (
		buf [headerLen + 1]byte
	)

	binary.BigEndian.PutUint32(buf[:lenPrefixLen], uint32(extendedBaseLen+len(payload)))
	buf[lenPrefixLen] = byte(ExtendedType)
	buf[headerLen] = byte(id)

	if _, err := dst.Write(buf[:]); err != nil {
		return err
	}

	_, err := dst.Write(payload)
	return err
}

// metadataHeader the bencoded dictionary prefix shared by the BEP 9 messages.
type metadataHeader struct {
	Type  int   `bencode:"msg_type"`
	Piece int   `bencode:"piece"`
	Total int64 `bencode:"total_size,omitempty"`
}

// MetadataRequestMessage asks the remote for one metadata piece.
type MetadataRequestMessage struct {
	Piece int
}

func (t MetadataRequestMessage) payloadBytes() []byte {
	return langx.Must(bencode.EncodeBytes(metadataHeader{Type: RequestMetadataExtensionMsgType, Piece: t.Piece}))
}

func (t MetadataRequestMessage) MessageSize() int {
	return lenPrefixLen + extendedBaseLen + len(t.payloadBytes())
}

func (t MetadataRequestMessage) writeBytes(dst io.Writer, ext *Extended) error {
	id, ok := ext.ID(ExtensionNameMetadata)
	if !ok {
		return ErrExtensionNotNegotiated
	}

	return writeExtended(dst, id, t.payloadBytes())
}

// MetadataDataMessage carries one metadata piece: the bencoded header
// followed by the raw block, which is not itself bencoded.
type MetadataDataMessage struct {
	Piece int
	Total int64
	Block []byte
}

func (t MetadataDataMessage) headerBytes() []byte {
	return langx.Must(bencode.EncodeBytes(metadataHeader{Type: DataMetadataExtensionMsgType, Piece: t.Piece, Total: t.Total}))
}

func (t MetadataDataMessage) MessageSize() int {
	return lenPrefixLen + extendedBaseLen + len(t.headerBytes()) + len(t.Block)
}

func (t MetadataDataMessage) writeBytes(dst io.Writer, ext *Extended) error {
	id, ok := ext.ID(ExtensionNameMetadata)
	if !ok {
		return ErrExtensionNotNegotiated
	}

	if err := writeExtended(dst, id, t.headerBytes()); err != nil {
		return err
	}

	_, err := dst.Write(t.Block)
	return err
}

// MetadataRejectMessage refuses a metadata piece request.
type MetadataRejectMessage struct {
	Piece int
}

func (t MetadataRejectMessage) payloadBytes() []byte {
	return langx.Must(bencode.EncodeBytes(metadataHeader{Type: RejectMetadataExtensionMsgType, Piece: t.Piece}))
}

func (t MetadataRejectMessage) MessageSize() int {
	return lenPrefixLen + extendedBaseLen + len(t.payloadBytes())
}

func (t MetadataRejectMessage) writeBytes(dst io.Writer, ext *Extended) error {
	id, ok := ext.ID(ExtensionNameMetadata)
	if !ok {
		return ErrExtensionNotNegotiated
	}

	return writeExtended(dst, id, t.payloadBytes())
}

// UnknownExtensionMessage retains the raw envelope for ids the session table
// does not recognize, preserving forward compatibility.
type UnknownExtensionMessage struct {
	ID      ExtensionNumber
	Payload []byte
}

func (t UnknownExtensionMessage) MessageSize() int {
	return lenPrefixLen + extendedBaseLen + len(t.Payload)
}

func (t UnknownExtensionMessage) writeBytes(dst io.Writer, _ *Extended) error {
	return writeExtended(dst, t.ID, t.Payload)
}

// parseProtExtension the extension protocol grammar: the envelope id resolved
// against the negotiated table, then the named extension's own decoder.
func parseProtExtension(b []byte, length int, ext *Extended) (Message, bool, error) {
	if len(b) < headerLen || MessageType(b[lenPrefixLen]) != ExtendedType {
		return nil, false, nil
	}

	if length < extendedBaseLen {
		return nil, true, ErrMalformedMessage
	}

	payload := b[headerLen:]
	if err := checkLength(payload, length-1); err != nil {
		return nil, true, err
	}

	id := ExtensionNumber(payload[0])
	payload = payload[1:]

	if id == HandshakeExtendedID {
		m, err := parseExtendedHandshake(payload)
		return m, true, err
	}

	name, ok := ext.Name(id)
	if !ok {
		return UnknownExtensionMessage{ID: id, Payload: payload}, true, nil
	}

	switch name {
	case ExtensionNameMetadata:
		m, err := parseMetadata(payload)
		return m, true, err
	case ExtensionNamePex:
		m, err := parsePex(payload)
		return m, true, err
	default:
		// negotiated but not implemented locally, retain the raw envelope.
		return UnknownExtensionMessage{ID: id, Payload: payload}, true, nil
	}
}

func parseMetadata(payload []byte) (Message, error) {
	var (
		hdr metadataHeader
	)

	dec := bencode.NewDecoder(bytes.NewReader(payload))
	if err := dec.Decode(&hdr); err != nil {
		return nil, errorsx.Wrap(err, "metadata extension header")
	}

	switch hdr.Type {
	case RequestMetadataExtensionMsgType:
		return MetadataRequestMessage{Piece: hdr.Piece}, nil
	case DataMetadataExtensionMsgType:
		// the raw block begins exactly where the bencoded header ends,
		// bencoded containers carry no trailing length marker of their own.
		return MetadataDataMessage{Piece: hdr.Piece, Total: hdr.Total, Block: payload[dec.BytesParsed():]}, nil
	case RejectMetadataExtensionMsgType:
		return MetadataRejectMessage{Piece: hdr.Piece}, nil
	default:
		return nil, errorsx.Errorf("unknown metadata extension message type: %d", hdr.Type)
	}
}
