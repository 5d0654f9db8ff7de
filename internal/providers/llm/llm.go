package llm

import (
	"context"
	"strings"
)

type Provider interface {
	// StreamAnswer returns a stream of text chunks (incremental).
	StreamAnswer(ctx context.Context, prompt string) (chunks <-chan string, errs <-chan error)
	Close() error
}

// Collect drains a streamed answer into one string.
func Collect(ctx context.Context, p Provider, prompt string) (string, error) {
	chunks, errs := p.StreamAnswer(ctx, prompt)
	var b strings.Builder
	for chunks != nil || errs != nil {
		select {
		case <-ctx.Done():
			return b.String(), ctx.Err()
		case c, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			b.WriteString(c)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return b.String(), err
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}
