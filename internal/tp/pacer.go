package tp

import (
	"context"
	"time"
)

// Pacer emits a precomputed segment sequence in bursts, rearming a timer
// for SeparationTime between bursts — the Go equivalent of the reactor's
// cooperative timer callback, using time.AfterFunc instead of a hand-rolled
// epoll timer wheel. Emit is called from whichever goroutine the pacer's
// own timer or the initial Start call runs on; callers needing single-
// threaded ownership (the reactor loop) should have Emit post onto their
// own event channel rather than mutate shared state directly.
type Pacer struct {
	segments []Segment
	burst    int
	sep      time.Duration
	emit     func(Segment)
	done     func()

	cancelled bool
	timer     *time.Timer
}

// NewPacer constructs a Pacer. burst <= 0 means unbounded bursts (all
// segments emitted as fast as Emit returns).
func NewPacer(segments []Segment, burst int, separation time.Duration, emit func(Segment), done func()) *Pacer {
	return &Pacer{segments: segments, burst: burst, sep: separation, emit: emit, done: done}
}

// Start begins emission synchronously for the first burst, then schedules
// remaining bursts via time.AfterFunc. It returns immediately once the
// first burst (or the whole sequence, if it fits in one burst) has been
// emitted.
func (p *Pacer) Start(ctx context.Context) {
	p.emitBurst(ctx, 0)
}

func (p *Pacer) emitBurst(ctx context.Context, from int) {
	if p.cancelled {
		return
	}
	select {
	case <-ctx.Done():
		p.Cancel()
		return
	default:
	}

	limit := len(p.segments)
	if p.burst > 0 && from+p.burst < limit {
		limit = from + p.burst
	}

	for i := from; i < limit; i++ {
		if p.cancelled {
			return
		}
		p.emit(p.segments[i])
	}

	if limit >= len(p.segments) {
		if p.done != nil {
			p.done()
		}
		return
	}

	next := limit
	p.timer = time.AfterFunc(p.sep, func() {
		p.emitBurst(ctx, next)
	})
}

// Cancel stops any pending burst and releases the remaining segments,
// per §4.5's "drop remaining segments on connection disconnect" rule.
func (p *Pacer) Cancel() {
	p.cancelled = true
	if p.timer != nil {
		p.timer.Stop()
	}
}
