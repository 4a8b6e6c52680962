package errorsx_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wirebt/peerwire/internal/errorsx"
)

func TestString(t *testing.T) {
	t.Run("stdlib interopt", func(t *testing.T) {
		var (
			local errorsx.String
			cause = errorsx.String("derp")
		)

		assert.True(t, errors.As(cause, &local))
		assert.Equal(t, cause, local)
		assert.True(t, errors.Is(cause, local))
	})

	t.Run("works with wrap", func(t *testing.T) {
		var (
			local   errorsx.String
			cause   = errorsx.String("derp")
			wrapped = errorsx.Wrap(cause, "wrapped error")
		)

		assert.True(t, errors.As(wrapped, &local))
		assert.True(t, errors.Is(wrapped, local))
	})
}

func TestFormatting(t *testing.T) {
	require.Equal(t, "derp", fmt.Sprintf("%s", errorsx.New("derp")))
	require.Equal(t, "derp: 5", fmt.Sprintf("%s", errorsx.Errorf("derp: %d", 5)))
	require.Equal(t, "failed: derp", fmt.Sprintf("%s", errorsx.Wrap(fmt.Errorf("derp"), "failed")))
	require.Equal(t, "failed 5: derp", fmt.Sprintf("%s", errorsx.Wrapf(fmt.Errorf("derp"), "failed %d", 5)))
}

func TestCompact(t *testing.T) {
	require.NoError(t, errorsx.Compact(nil, nil))
	require.Equal(t, io.EOF, errorsx.Compact(nil, io.EOF, errorsx.New("derp")))
}

func TestWrapNil(t *testing.T) {
	require.NoError(t, errorsx.Wrap(nil, "failed"))
	require.NoError(t, errorsx.Wrapf(nil, "failed %d", 5))
}

func TestIgnore(t *testing.T) {
	require.NoError(t, errorsx.Ignore(io.EOF, io.EOF))
	require.Equal(t, io.EOF, errorsx.Ignore(io.EOF, io.ErrClosedPipe))
}
