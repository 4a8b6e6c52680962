package btprotocol

import (
	"io"

	"github.com/zeebo/bencode"

	"github.com/wirebt/peerwire/internal/errorsx"
	"github.com/wirebt/peerwire/internal/langx"
)

// ExtendedHandshakeMessage the BEP 10 negotiation payload carried in envelope
// id 0. the m dictionary maps extension names to the numeric ids the sender
// expects for them on this connection.
type ExtendedHandshakeMessage struct {
	M            map[string]ExtensionNumber `bencode:"m"`
	V            string                     `bencode:"v,omitempty"`
	Reqq         int                        `bencode:"reqq,omitempty"`
	Port         int                        `bencode:"p,omitempty"`
	MetadataSize int64                      `bencode:"metadata_size,omitempty"`
}

func (t ExtendedHandshakeMessage) payloadBytes() []byte {
	// bencoding a static struct cannot fail.
	return langx.Must(bencode.EncodeBytes(t))
}

func (t ExtendedHandshakeMessage) MessageSize() int {
	return lenPrefixLen + extendedBaseLen + len(t.payloadBytes())
}

func (t ExtendedHandshakeMessage) writeBytes(dst io.Writer, _ *Extended) error {
	// the handshake id is fixed, no negotiated table is consulted.
	return writeExtended(dst, HandshakeExtendedID, t.payloadBytes())
}

func parseExtendedHandshake(payload []byte) (m ExtendedHandshakeMessage, err error) {
	if err = bencode.DecodeBytes(payload, &m); err != nil {
		return m, errorsx.Wrap(err, "extended handshake")
	}

	return m, nil
}

// Extended the immutable negotiated extension table for one session, built
// from the remote's extended handshake. renegotiation produces a new snapshot,
// never an in place mutation. a nil *Extended reads as "never negotiated".
type Extended struct {
	ids          map[ExtensionName]ExtensionNumber
	names        map[ExtensionNumber]ExtensionName
	metadataSize int64
}

// NewExtended build the negotiation snapshot from the remote's handshake.
func NewExtended(hs ExtendedHandshakeMessage) *Extended {
	t := &Extended{
		ids:          make(map[ExtensionName]ExtensionNumber, len(hs.M)),
		names:        make(map[ExtensionNumber]ExtensionName, len(hs.M)),
		metadataSize: hs.MetadataSize,
	}

	for name, id := range hs.M {
		if id == HandshakeExtendedID {
			// a peer maps a name to id 0 to disable the extension.
			continue
		}
		t.ids[ExtensionName(name)] = id
		t.names[id] = ExtensionName(name)
	}

	return t
}

// ID resolve the negotiated id for an extension name.
func (t *Extended) ID(name ExtensionName) (id ExtensionNumber, ok bool) {
	if t == nil {
		return 0, false
	}

	id, ok = t.ids[name]
	return id, ok
}

// Name resolve a wire id back to the extension name it was negotiated for.
func (t *Extended) Name(id ExtensionNumber) (name ExtensionName, ok bool) {
	if t == nil {
		return "", false
	}

	name, ok = t.names[id]
	return name, ok
}

// MetadataSize advertised by the remote, zero when unknown.
func (t *Extended) MetadataSize() int64 {
	if t == nil {
		return 0
	}

	return t.metadataSize
}
