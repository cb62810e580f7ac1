package publish

import (
	"context"
	"fmt"

	"github.com/roach88/droproute/internal/engine"
	"github.com/roach88/droproute/internal/ir"
)

// Fanout delivers every frame to each publisher in order. The first error
// stops delivery to the remaining publishers and is returned.
type Fanout []engine.Publisher

// PublishActive implements engine.Publisher.
func (f Fanout) PublishActive(ctx context.Context, frame ir.Frame) error {
	for i, p := range f {
		if err := p.PublishActive(ctx, frame); err != nil {
			return fmt.Errorf("publisher %d: %w", i, err)
		}
	}
	return nil
}
