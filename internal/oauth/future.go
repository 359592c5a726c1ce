package oauth

import "context"

// Future is the handle of an authorization running in the background.
type Future struct {
	done chan struct{}
	err  error
}

// Go runs fn on a new goroutine and returns its Future.
func Go(fn func() error) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.err = fn()
	}()
	return f
}

// Done is closed once the authorization finished.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Err returns the result, or nil while still running.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Wait blocks until the authorization finished or ctx is done.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
