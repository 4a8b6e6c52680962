package btprotocol

import (
	"encoding/binary"

	"github.com/wirebt/peerwire/internal/errorsx"
)

// ErrMalformedMessage the buffer does not match any message grammar, or a
// matched grammar found its payload malformed. framing errors corrupt every
// subsequent byte on the stream, callers should drop the connection.
const ErrMalformedMessage = errorsx.String("malformed message")

// BytesNeeded reports the total byte count, length prefix included, required
// before the next message can be parsed from b. ok is false until the 4 byte
// length prefix is available. a declared length that cannot be represented in
// the host int width is an error, never a request for more data.
func BytesNeeded(b []byte) (n int, ok bool, err error) {
	if len(b) < lenPrefixLen {
		return 0, false, nil
	}

	length, err := u32int(binary.BigEndian.Uint32(b))
	if err != nil {
		return 0, false, err
	}

	return lenPrefixLen + length, true, nil
}

// ParseBytes decodes exactly one message from b, which must hold a complete
// message as reported by BytesNeeded. the grammars are tried in fixed
// priority order: the built in messages, the reserved bit extension messages,
// then the extension protocol envelope resolved against ext. ext is nil when
// the extension protocol was never negotiated. a partial match within a
// grammar is a hard failure, never a fallthrough to a later tier.
func ParseBytes(b []byte, ext *Extended) (Message, error) {
	if len(b) < lenPrefixLen {
		return nil, ErrMalformedMessage
	}

	length, err := u32int(binary.BigEndian.Uint32(b))
	if err != nil {
		return nil, err
	}

	if m, matched, err := parseBuiltin(b, length); matched {
		return m, err
	}

	if m, matched, err := parseBitsExtension(b, length); matched {
		return m, err
	}

	if m, matched, err := parseProtExtension(b, length, ext); matched {
		return m, err
	}

	return nil, ErrMalformedMessage
}

// checkLength payload must account for every declared byte.
func checkLength(payload []byte, n int) error {
	if len(payload) != n {
		return ErrMalformedMessage
	}

	return nil
}

// parseBuiltin the fixed (length, id) dispatch table for BEP 3 messages.
func parseBuiltin(b []byte, length int) (Message, bool, error) {
	if length == keepAliveLen {
		// two historical keep alive encodings: the bare prefix, and the
		// prefix with a trailing zero id byte.
		switch {
		case len(b) == lenPrefixLen:
			return KeepAliveMessage{}, true, nil
		case len(b) == headerLen && b[lenPrefixLen] == 0:
			return KeepAliveMessage{}, true, nil
		default:
			return nil, true, ErrMalformedMessage
		}
	}

	if len(b) < headerLen {
		return nil, true, ErrMalformedMessage
	}

	var (
		id      = MessageType(b[lenPrefixLen])
		payload = b[headerLen:]
	)

	switch {
	case length == chokeLen && id == Choke:
		if err := checkLength(payload, chokeLen-1); err != nil {
			return nil, true, err
		}
		return ChokeMessage{}, true, nil
	case length == unchokeLen && id == Unchoke:
		if err := checkLength(payload, unchokeLen-1); err != nil {
			return nil, true, err
		}
		return UnchokeMessage{}, true, nil
	case length == interestedLen && id == Interested:
		if err := checkLength(payload, interestedLen-1); err != nil {
			return nil, true, err
		}
		return InterestedMessage{}, true, nil
	case length == notInterestedLen && id == NotInterested:
		if err := checkLength(payload, notInterestedLen-1); err != nil {
			return nil, true, err
		}
		return NotInterestedMessage{}, true, nil
	case length == haveLen && id == Have:
		if err := checkLength(payload, haveLen-1); err != nil {
			return nil, true, err
		}
		return HaveMessage{Index: Integer(binary.BigEndian.Uint32(payload))}, true, nil
	case id == Bitfield:
		if err := checkLength(payload, length-1); err != nil {
			return nil, true, err
		}
		return BitfieldMessage{Field: payload}, true, nil
	case length == requestLen && id == Request:
		if err := checkLength(payload, requestLen-1); err != nil {
			return nil, true, err
		}
		return RequestMessage{
			Index:  Integer(binary.BigEndian.Uint32(payload)),
			Begin:  Integer(binary.BigEndian.Uint32(payload[4:])),
			Length: Integer(binary.BigEndian.Uint32(payload[8:])),
		}, true, nil
	case id == Piece:
		if length < pieceBaseLen {
			return nil, true, ErrMalformedMessage
		}
		if err := checkLength(payload, length-1); err != nil {
			return nil, true, err
		}
		return PieceMessage{
			Index: Integer(binary.BigEndian.Uint32(payload)),
			Begin: Integer(binary.BigEndian.Uint32(payload[4:])),
			Block: payload[pieceBaseLen-1:],
		}, true, nil
	case length == cancelLen && id == Cancel:
		if err := checkLength(payload, cancelLen-1); err != nil {
			return nil, true, err
		}
		return CancelMessage{
			Index:  Integer(binary.BigEndian.Uint32(payload)),
			Begin:  Integer(binary.BigEndian.Uint32(payload[4:])),
			Length: Integer(binary.BigEndian.Uint32(payload[8:])),
		}, true, nil
	default:
		return nil, false, nil
	}
}
