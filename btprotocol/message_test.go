package btprotocol

import (
	"net/netip"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	qt "github.com/frankban/quicktest"
	"github.com/stretchr/testify/require"
)

// negotiation table used by the encode side tests.
func testExtended() *Extended {
	return NewExtended(ExtendedHandshakeMessage{
		M: map[string]ExtensionNumber{
			string(ExtensionNameMetadata): 3,
			string(ExtensionNamePex):      2,
		},
		MetadataSize: 52916,
	})
}

func testMessages() map[string]Message {
	var (
		added CompactPeers
	)
	added.Add(netip.MustParseAddrPort("10.0.0.1:6881"))
	added.Add(netip.MustParseAddrPort("10.0.0.2:51413"))

	return map[string]Message{
		"keepalive":     KeepAliveMessage{},
		"choke":         ChokeMessage{},
		"unchoke":       UnchokeMessage{},
		"interested":    InterestedMessage{},
		"notinterested": NotInterestedMessage{},
		"have":          HaveMessage{Index: 42},
		"bitfield":      BitfieldMessage{Field: []byte{0xaa, 0x55}},
		"request":       RequestMessage{Index: 1, Begin: 16384, Length: 16384},
		"piece":         PieceMessage{Index: 1, Begin: 16384, Block: []byte("hello world")},
		"cancel":        CancelMessage{Index: 1, Begin: 16384, Length: 16384},
		"port":          PortMessage{Listen: 6881},
		"extended handshake": ExtendedHandshakeMessage{
			M:            map[string]ExtensionNumber{string(ExtensionNameMetadata): 1},
			V:            "wirebt 0.1",
			Reqq:         250,
			Port:         6881,
			MetadataSize: 52916,
		},
		"metadata request":  MetadataRequestMessage{Piece: 2},
		"metadata data":     MetadataDataMessage{Piece: 2, Total: 52916, Block: []byte("d4:spam4:eggse")},
		"metadata reject":   MetadataRejectMessage{Piece: 2},
		"pex":               PexMessage{Added: added, AddedFlags: []byte{PexSupportsUtp, PexOutgoingConn}},
		"unknown extension": UnknownExtensionMessage{ID: 99, Payload: []byte{0x01, 0x02, 0x03}},
	}
}

func TestMessageSizeAgreement(t *testing.T) {
	ext := testExtended()

	for name, m := range testMessages() {
		t.Run(name, func(t *testing.T) {
			encoded, err := Marshal(m, ext)
			require.NoError(t, err)
			require.Equal(t, m.MessageSize(), len(encoded))
		})
	}
}

func TestMessageRoundTrip(t *testing.T) {
	c := qt.New(t)
	ext := testExtended()

	for name, m := range testMessages() {
		c.Run(name, func(c *qt.C) {
			encoded, err := Marshal(m, ext)
			c.Assert(err, qt.IsNil)

			n, ok, err := BytesNeeded(encoded)
			c.Assert(err, qt.IsNil)
			c.Assert(ok, qt.IsTrue)
			c.Assert(n, qt.Equals, len(encoded))

			parsed, err := ParseBytes(encoded, ext)
			c.Assert(err, qt.IsNil)
			c.Assert(parsed, qt.DeepEquals, m)
		})
	}
}

func TestNewBitfield(t *testing.T) {
	owned := roaring.BitmapOf(0, 3, 15)

	bf := NewBitfield(16, owned)
	require.Equal(t, []byte{0b10010000, 0b00000001}, bf.Field)

	for piece := uint64(0); piece < 16; piece++ {
		require.Equal(t, owned.Contains(uint32(piece)), bf.Has(piece), "piece %d", piece)
	}
}

func TestNewBitfieldRagged(t *testing.T) {
	// 10 pieces round up to 2 bytes, trailing bits stay clear.
	bf := NewBitfield(10, roaring.BitmapOf(9))
	require.Equal(t, []byte{0x00, 0b01000000}, bf.Field)
	require.False(t, bf.Has(10))
}

func TestNewBitfieldNil(t *testing.T) {
	bf := NewBitfield(8, nil)
	require.Equal(t, []byte{0x00}, bf.Field)
}
