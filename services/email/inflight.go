package emailsvc

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// inflight tracks the messages being sent in the background.
type inflight struct {
	wg sync.WaitGroup
}

func (f *inflight) goSend(send func()) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		send()
	}()
}

// Wait blocks until the messages being sent are done, or ctx is.
func (f *inflight) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for emails to be sent")
	}
}
