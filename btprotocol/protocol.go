// Package btprotocol implements the bittorrent peer wire message layer:
// framing, the tiered message grammars, and the negotiated extension protocol.
package btprotocol

const (
	// Protocol the BEP 3 handshake header, a length prefixed protocol string.
	Protocol = "\x13BitTorrent protocol"
)

// MessageType is the id byte trailing the 4 byte length prefix.
type MessageType byte

const (
	// BEP 3
	Choke         MessageType = 0
	Unchoke       MessageType = 1
	Interested    MessageType = 2
	NotInterested MessageType = 3
	Have          MessageType = 4
	Bitfield      MessageType = 5
	Request       MessageType = 6
	Piece         MessageType = 7
	Cancel        MessageType = 8

	// BEP 5 - activated by the dht reserved bit, outside the extension protocol.
	Port MessageType = 9

	// BEP 10 - extension protocol envelope.
	ExtendedType MessageType = 20
)

// framing constants. every message is preceded by a 4 byte big endian length
// counted from immediately after the length field itself.
const (
	lenPrefixLen = 4
	headerLen    = lenPrefixLen + 1
)

// length field values for the fixed size messages, and the fixed prefixes of
// the variable size ones.
const (
	keepAliveLen     = 0
	chokeLen         = 1
	unchokeLen       = 1
	interestedLen    = 1
	notInterestedLen = 1
	haveLen          = 5
	bitfieldBaseLen  = 1
	requestLen       = 13
	pieceBaseLen     = 9
	cancelLen        = 13
	portLen          = 3
	extendedBaseLen  = 2
)

// ExtensionName a named extension protocol message, BEP 10.
type ExtensionName string

// ExtensionNumber the numeric id an extension name was negotiated to.
type ExtensionNumber uint8

// HandshakeExtendedID envelope id 0 permanently identifies the extended
// handshake itself, it is never present in a negotiated table.
const HandshakeExtendedID ExtensionNumber = 0

const (
	ExtensionNameMetadata ExtensionName = "ut_metadata" // BEP 9
	ExtensionNamePex      ExtensionName = "ut_pex"      // BEP 11
)

// BEP 9 metadata exchange message types.
const (
	RequestMetadataExtensionMsgType = 0
	DataMetadataExtensionMsgType    = 1
	RejectMetadataExtensionMsgType  = 2
)
