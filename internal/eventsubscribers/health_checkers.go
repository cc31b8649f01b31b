package eventsubscribers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/etherlabsio/healthcheck/v2"
)

type expiringErrHolder struct {
	D   time.Duration
	err error
	l   sync.Mutex
	t   *time.Timer
}

func (h *expiringErrHolder) Get() error {
	h.l.Lock()
	defer h.l.Unlock()

	return h.err
}

func (h *expiringErrHolder) Set(err error) {
	h.l.Lock()
	defer h.l.Unlock()
	if h.t != nil {
		h.t.Stop()
		h.t = nil
	}

	h.err = err
	if err != nil {
		h.t = time.AfterFunc(h.D, func() {
			h.Set(nil)
		})
	}
}

// ProviderResponseChecker reports the last error of the provider's call
// until resetDuration passes or the provider answers successfully
func ProviderResponseChecker(dispatcher Subscriber, provider string, resetDuration time.Duration) healthcheck.CheckerFunc {
	errHolder := &expiringErrHolder{D: resetDuration}
	dispatcher.Subscribe(
		"yggdrasil:after_call",
		func(op string, calledProvider string, subject string, found bool, err error) {
			if calledProvider != provider || errors.Is(err, context.Canceled) {
				return
			}

			errHolder.Set(err)
		},
	)

	return func(ctx context.Context) error {
		return errHolder.Get()
	}
}
