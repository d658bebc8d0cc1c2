// Package predict issues cascade-prediction requests on behalf of
// continuous UI input. Slider-driven magnitude changes arrive far faster
// than the backend should be asked, so requests are debounced on input
// quiescence, and a generation counter guarantees a superseded response is
// never applied over a newer one.
package predict

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/marketgraph/cascadeviz/pkg/client"
	"github.com/marketgraph/cascadeviz/pkg/model"
)

// DefaultQuiescence is how long the input must be idle before a request is
// actually issued.
const DefaultQuiescence = 500 * time.Millisecond

// Debouncer coalesces a stream of prediction requests. Only the last
// request seen during a quiescence window goes to the network, and only the
// newest issued request may apply its result.
type Debouncer struct {
	do    func(context.Context, client.PredictRequest) (model.Prediction, error)
	apply func(model.Prediction)
	onErr func(error)
	delay time.Duration

	gen atomic.Uint64

	mu      sync.Mutex
	pending client.PredictRequest
	timer   *time.Timer
}

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithQuiescence overrides the debounce window.
func WithQuiescence(d time.Duration) Option {
	return func(db *Debouncer) { db.delay = d }
}

// WithErrorHandler routes request failures somewhere other than the log.
func WithErrorHandler(f func(error)) Option {
	return func(db *Debouncer) { db.onErr = f }
}

// NewDebouncer wires the request function to the apply callback. apply runs
// on the requesting goroutine once a response survives the staleness check.
func NewDebouncer(
	do func(context.Context, client.PredictRequest) (model.Prediction, error),
	apply func(model.Prediction),
	opts ...Option,
) *Debouncer {
	d := &Debouncer{
		do:    do,
		apply: apply,
		delay: DefaultQuiescence,
		onErr: func(err error) { log.Warn("predict: request failed", "err", err) },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Request records the latest desired prediction and (re)starts the
// quiescence timer. Every call supersedes all in-flight and pending work.
func (d *Debouncer) Request(ctx context.Context, req client.PredictRequest) {
	gen := d.gen.Add(1)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = req
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.fire(ctx, gen)
	})
}

// Cancel discards any pending or in-flight request.
func (d *Debouncer) Cancel() {
	d.gen.Add(1)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// fire issues the request captured at generation gen. The response is
// dropped if any newer Request or Cancel happened, whether the race was won
// before or after the network round trip.
func (d *Debouncer) fire(ctx context.Context, gen uint64) {
	if d.gen.Load() != gen {
		return
	}
	d.mu.Lock()
	req := d.pending
	d.mu.Unlock()

	p, err := d.do(ctx, req)
	if d.gen.Load() != gen {
		return
	}
	if err != nil {
		d.onErr(err)
		return
	}
	d.apply(p)
}
