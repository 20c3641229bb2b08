package bbgo

import (
	"context"
	"sync"
	"time"
)

// StartLoopOnce starts a strategy's single goroutine loop exactly once.
//
// It standardizes the boilerplate every tick-driven strategy repeats:
// once.Do, context.WithCancel, and the ticker lifecycle. The decision
// cadence is fixed by tick; run receives the ticker channel and should
// return when loopCtx is done.
func StartLoopOnce(
	parent context.Context,
	once *sync.Once,
	setCancel func(context.CancelFunc),
	tick time.Duration,
	run func(loopCtx context.Context, tickC <-chan time.Time),
) {
	once.Do(func() {
		loopCtx, cancel := context.WithCancel(parent)
		if setCancel != nil {
			setCancel(cancel)
		}
		go func() {
			ticker := time.NewTicker(tick)
			defer ticker.Stop()
			run(loopCtx, ticker.C)
		}()
	})
}
