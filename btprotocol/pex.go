package btprotocol

import (
	"encoding/binary"
	"io"
	"net/netip"

	"github.com/zeebo/bencode"

	"github.com/wirebt/peerwire/internal/errorsx"
	"github.com/wirebt/peerwire/internal/langx"
)

// pex flag bits, one flag byte per added peer.
const (
	PexPrefersEncryption = 0x01
	PexSeedUploadOnly    = 0x02
	PexSupportsUtp       = 0x04
	PexHolepunch         = 0x08
	PexOutgoingConn      = 0x10
)

const compactPeerLen = 6

// CompactPeers packed ipv4 address and port pairs, 6 bytes per peer.
type CompactPeers []byte

// Len the number of packed peers.
func (t CompactPeers) Len() int {
	return len(t) / compactPeerLen
}

// Add pack an address, ignoring anything that is not ipv4.
func (t *CompactPeers) Add(addr netip.AddrPort) bool {
	if !addr.Addr().Is4() {
		return false
	}

	ip := addr.Addr().As4()
	*t = append(*t, ip[:]...)
	*t = binary.BigEndian.AppendUint16(*t, addr.Port())

	return true
}

// AddrPorts unpack into addresses, truncating any trailing partial entry.
func (t CompactPeers) AddrPorts() (res []netip.AddrPort) {
	for i := 0; i+compactPeerLen <= len(t); i += compactPeerLen {
		res = append(res, netip.AddrPortFrom(
			netip.AddrFrom4([4]byte(t[i:i+4])),
			binary.BigEndian.Uint16(t[i+4:i+compactPeerLen]),
		))
	}

	return res
}

// PexMessage BEP 11 peer exchange, a negotiated extension message carrying
// compact peer address deltas since the previous exchange.
type PexMessage struct {
	Added      CompactPeers `bencode:"added,omitempty"`
	AddedFlags []byte       `bencode:"added.f,omitempty"`
	Dropped    CompactPeers `bencode:"dropped,omitempty"`
}

func (t PexMessage) payloadBytes() []byte {
	return langx.Must(bencode.EncodeBytes(t))
}

func (t PexMessage) MessageSize() int {
	return lenPrefixLen + extendedBaseLen + len(t.payloadBytes())
}

func (t PexMessage) writeBytes(dst io.Writer, ext *Extended) error {
	id, ok := ext.ID(ExtensionNamePex)
	if !ok {
		return ErrExtensionNotNegotiated
	}

	return writeExtended(dst, id, t.payloadBytes())
}

func parsePex(payload []byte) (m PexMessage, err error) {
	if err = bencode.DecodeBytes(payload, &m); err != nil {
		return m, errorsx.Wrap(err, "pex extension")
	}

	return m, nil
}
