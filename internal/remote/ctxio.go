package remote

import (
	"context"
	"io"
)

// ContextReader fails reads once ctx is done, so that a long copy notices
// cancellation between chunks.
type ContextReader struct {
	ctx context.Context
	r   io.Reader
}

// NewContextReader wraps r so that reads stop once ctx is done.
func NewContextReader(ctx context.Context, r io.Reader) *ContextReader {
	return &ContextReader{ctx: ctx, r: r}
}

func (c *ContextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
