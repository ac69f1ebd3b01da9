package shared

import (
	"context"
	"sync"
)

// ForEveryValueWithBoundedGoroutines calls f for every value using at most limit goroutines.
// Once ctx is done no further values are started; calls already running are waited for
// and ctx.Err() is returned.
func ForEveryValueWithBoundedGoroutines[T any](ctx context.Context, limit int, values []T, f func(i int, value T)) error {
	if limit < 1 {
		limit = 1
	}

	guard := make(chan struct{}, limit)
	var wg sync.WaitGroup
	var err error

loop:
	for i, value := range values {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break loop
		case guard <- struct{}{}: // would block if guard channel is already filled
		}
		if ctx.Err() != nil {
			<-guard
			err = ctx.Err()
			break
		}

		wg.Add(1)
		go func(i int, value T) {
			defer wg.Done()
			defer func() { <-guard }()
			f(i, value)
		}(i, value)
	}
	wg.Wait()
	return err
}
