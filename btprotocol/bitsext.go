package btprotocol

import (
	"encoding/binary"
	"io"
)

// PortMessage the BEP 5 dht listen port announcement. activated by the dht
// reserved handshake bit, its id space is independent of both the built in
// messages and the negotiated extension table.
type PortMessage struct {
	Listen uint16
}

func (PortMessage) MessageSize() int {
	return lenPrefixLen + portLen
}

func (t PortMessage) writeBytes(dst io.Writer, _ *Extended) error {
	var (
		buf [lenPrefixLen + portLen]byte
	)

	binary.BigEndian.PutUint32(buf[:lenPrefixLen], portLen)
	buf[lenPrefixLen] = byte(Port)
	binary.BigEndian.PutUint16(buf[headerLen:], t.Listen)

	_, err := dst.Write(buf[:])
	return err
}

// parseBitsExtension the reserved bit extension grammar.
func parseBitsExtension(b []byte, length int) (Message, bool, error) {
	if len(b) < headerLen {
		return nil, false, nil
	}

	if MessageType(b[lenPrefixLen]) != Port || length != portLen {
		return nil, false, nil
	}

	payload := b[headerLen:]
	if err := checkLength(payload, portLen-1); err != nil {
		return nil, true, err
	}

	return PortMessage{Listen: binary.BigEndian.Uint16(payload)}, true, nil
}
