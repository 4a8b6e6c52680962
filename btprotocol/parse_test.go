package btprotocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesNeeded(t *testing.T) {
	t.Run("insufficient prefix", func(t *testing.T) {
		for _, b := range [][]byte{nil, {0}, {0, 0}, {0, 0, 13}} {
			_, ok, err := BytesNeeded(b)
			require.NoError(t, err)
			require.False(t, ok)
		}
	})

	t.Run("complete prefix", func(t *testing.T) {
		n, ok, err := BytesNeeded([]byte{0, 0, 0, 13})
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, 17, n)
	})

	t.Run("invariant to additional bytes", func(t *testing.T) {
		encoded, err := Marshal(HaveMessage{Index: 7}, nil)
		require.NoError(t, err)

		for i := lenPrefixLen; i <= len(encoded); i++ {
			n, ok, err := BytesNeeded(encoded[:i])
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, len(encoded), n)
		}
	})
}

func TestParseKeepAlive(t *testing.T) {
	t.Run("minimal form", func(t *testing.T) {
		m, err := ParseBytes([]byte{0, 0, 0, 0}, nil)
		require.NoError(t, err)
		require.Equal(t, KeepAliveMessage{}, m)
		require.Equal(t, 4, m.MessageSize())
	})

	t.Run("trailing zero id form", func(t *testing.T) {
		m, err := ParseBytes([]byte{0, 0, 0, 0, 0}, nil)
		require.NoError(t, err)
		require.Equal(t, KeepAliveMessage{}, m)
	})

	t.Run("always encodes minimal", func(t *testing.T) {
		encoded, err := Marshal(KeepAliveMessage{}, nil)
		require.NoError(t, err)
		require.Equal(t, []byte{0, 0, 0, 0}, encoded)
	})
}

func TestParseHave(t *testing.T) {
	wire := []byte{0, 0, 0, 5, 4, 0, 0, 0, 7}

	m, err := ParseBytes(wire, nil)
	require.NoError(t, err)
	require.Equal(t, HaveMessage{Index: 7}, m)

	encoded, err := Marshal(m, nil)
	require.NoError(t, err)
	require.Equal(t, wire, encoded)
}

func TestParseRequest(t *testing.T) {
	wire := []byte{0, 0, 0, 13, 6, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 4}

	m, err := ParseBytes(wire, nil)
	require.NoError(t, err)
	require.Equal(t, RequestMessage{Index: 1, Begin: 0, Length: 4}, m)
}

func TestParsePort(t *testing.T) {
	wire := []byte{0, 0, 0, 3, 9, 0x1a, 0xe1}

	m, err := ParseBytes(wire, nil)
	require.NoError(t, err)
	require.Equal(t, PortMessage{Listen: 6881}, m)

	encoded, err := Marshal(m, nil)
	require.NoError(t, err)
	require.Equal(t, wire, encoded)
}

func TestBitfieldOwnership(t *testing.T) {
	m, err := ParseBytes([]byte{0, 0, 0, 3, 5, 0b10000000, 0b00000001}, nil)
	require.NoError(t, err)

	bf, ok := m.(BitfieldMessage)
	require.True(t, ok)

	for piece := uint64(0); piece < 16; piece++ {
		expected := piece == 0 || piece == 15
		assert.Equal(t, expected, bf.Has(piece), "piece %d", piece)
	}

	assert.False(t, bf.Has(16))
}

func TestDispatchPriority(t *testing.T) {
	// an exact built in (length, id) match always wins over later tiers.
	for wire, expected := range map[*[5]byte]Message{
		{0, 0, 0, 1, 0}: ChokeMessage{},
		{0, 0, 0, 1, 1}: UnchokeMessage{},
		{0, 0, 0, 1, 2}: InterestedMessage{},
		{0, 0, 0, 1, 3}: NotInterestedMessage{},
	} {
		m, err := ParseBytes(wire[:], nil)
		require.NoError(t, err)
		require.Equal(t, expected, m)
	}
}

func TestParseMalformed(t *testing.T) {
	t.Run("unknown id", func(t *testing.T) {
		_, err := ParseBytes([]byte{0, 0, 0, 2, 12, 0}, nil)
		require.ErrorIs(t, err, ErrMalformedMessage)
	})

	t.Run("declared length disagrees with id", func(t *testing.T) {
		// a choke id carrying a have length matches no grammar.
		_, err := ParseBytes([]byte{0, 0, 0, 5, 0, 0, 0, 0, 7}, nil)
		require.ErrorIs(t, err, ErrMalformedMessage)
	})

	t.Run("truncated fixed payload", func(t *testing.T) {
		_, err := ParseBytes([]byte{0, 0, 0, 5, 4, 0, 0}, nil)
		require.ErrorIs(t, err, ErrMalformedMessage)
	})

	t.Run("truncated piece prefix", func(t *testing.T) {
		_, err := ParseBytes([]byte{0, 0, 0, 5, 7, 0, 0, 0, 0}, nil)
		require.ErrorIs(t, err, ErrMalformedMessage)
	})

	t.Run("empty extension envelope", func(t *testing.T) {
		_, err := ParseBytes([]byte{0, 0, 0, 1, 20}, nil)
		require.ErrorIs(t, err, ErrMalformedMessage)
	})
}

func TestUnknownExtensionTolerance(t *testing.T) {
	wire := []byte{0, 0, 0, 4, 20, 99, 0xde, 0xad}

	t.Run("without negotiation", func(t *testing.T) {
		m, err := ParseBytes(wire, nil)
		require.NoError(t, err)
		require.Equal(t, UnknownExtensionMessage{ID: 99, Payload: []byte{0xde, 0xad}}, m)
	})

	t.Run("id absent from the table", func(t *testing.T) {
		ext := NewExtended(ExtendedHandshakeMessage{M: map[string]ExtensionNumber{string(ExtensionNameMetadata): 3}})

		m, err := ParseBytes(wire, ext)
		require.NoError(t, err)
		require.Equal(t, UnknownExtensionMessage{ID: 99, Payload: []byte{0xde, 0xad}}, m)
	})

	t.Run("reencodes identically", func(t *testing.T) {
		m, err := ParseBytes(wire, nil)
		require.NoError(t, err)

		encoded, err := Marshal(m, nil)
		require.NoError(t, err)
		require.Equal(t, wire, encoded)
	})
}
