package sink

import (
	"context"
	"errors"

	"github.com/avasilev/sonar-ranger/internal/sonar"
)

// Fanout publishes each reading to every sink in order. All sinks see the
// reading even when some fail; the failures are joined into a single error.
type Fanout []sonar.Sink

func (f Fanout) Publish(ctx context.Context, r sonar.Reading) error {
	var errs []error
	for _, s := range f {
		if err := s.Publish(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
