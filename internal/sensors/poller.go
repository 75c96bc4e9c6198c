package sensors

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/motion_bridge/internal/sample"
)

// minPollPeriod bounds the fastest rate a polled device is read at.
const minPollPeriod = time.Millisecond

// readFunc reads one raw sample from a polled device.
type readFunc func() (*sample.Raw, error)

// pollSubscription runs one delivery goroutine reading a device on a ticker.
type pollSubscription struct {
	cancel context.CancelFunc
	once   sync.Once
}

func (p *pollSubscription) Unregister() {
	p.once.Do(p.cancel)
}

// startPolling starts the delivery goroutine for one subscription. Read errors
// are logged and skipped; the device is simply read again on the next tick.
func startPolling(name string, period time.Duration, read readFunc, h Handler) *pollSubscription {
	if period < minPollPeriod {
		period = minPollPeriod
	}
	ctx, cancel := context.WithCancel(context.Background())
	sub := &pollSubscription{cancel: cancel}

	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			raw, err := read()
			if err != nil {
				log.Debugf("%s: read error: %v", name, err)
				continue
			}
			if ctx.Err() != nil {
				return
			}
			h.OnSample(raw)
		}
	}()

	return sub
}
