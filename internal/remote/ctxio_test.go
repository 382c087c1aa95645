package remote

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextReader_PassesThrough(t *testing.T) {
	r := NewContextReader(context.Background(), strings.NewReader("abc"))
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(b))
}

func TestContextReader_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewContextReader(ctx, strings.NewReader("abc"))
	_, err := io.ReadAll(r)
	assert.ErrorIs(t, err, context.Canceled)
}
