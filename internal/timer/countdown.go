// Package timer implements the per-question countdown.
package timer

import (
	"sync"
	"time"

	"ctscan-quiz/internal/clock"
)

const tick = time.Second

// Band is the urgency bucket for the remaining/duration ratio.
type Band string

const (
	BandSafe     Band = "safe"
	BandWarning  Band = "warning"
	BandCritical Band = "critical"
)

// BandFor maps a remaining/duration ratio to its band.
func BandFor(ratio float64) Band {
	switch {
	case ratio >= 0.5:
		return BandSafe
	case ratio >= 0.25:
		return BandWarning
	default:
		return BandCritical
	}
}

// Countdown ticks once per second while playing, reports every remaining
// value and signals expiry once per cycle. A cycle starts on New or whenever
// Reset sees a new key or duration.
type Countdown struct {
	clock    clock.Clock
	onUpdate func(remaining int)
	onTimeUp func()

	mu        sync.Mutex
	key       string
	duration  int
	remaining int
	playing   bool
	expired   bool
	gen       uint64
	pending   clock.Timer
}

// New creates a stopped countdown. Either callback may be nil.
func New(c clock.Clock, onUpdate func(remaining int), onTimeUp func()) *Countdown {
	if c == nil {
		c = clock.System
	}
	return &Countdown{clock: c, onUpdate: onUpdate, onTimeUp: onTimeUp}
}

// Reset reconfigures the countdown. A change of key or duration rewinds the
// remaining time to duration and restarts ticking if playing; identical values
// are ignored. duration must be positive.
func (t *Countdown) Reset(key string, duration int) {
	t.mu.Lock()
	if key == t.key && duration == t.duration {
		t.mu.Unlock()
		return
	}
	t.key = key
	t.duration = duration
	t.remaining = duration
	t.expired = false
	t.cancelLocked()
	var emit func()
	if t.playing {
		emit = t.startLocked()
	}
	t.mu.Unlock()

	if emit != nil {
		emit()
	}
}

// SetPlaying starts or pauses ticking. Pausing takes effect immediately.
func (t *Countdown) SetPlaying(playing bool) {
	t.mu.Lock()
	if playing == t.playing {
		t.mu.Unlock()
		return
	}
	t.playing = playing
	t.cancelLocked()
	var emit func()
	if playing {
		emit = t.startLocked()
	}
	t.mu.Unlock()

	if emit != nil {
		emit()
	}
}

// Stop pauses the countdown; it is SetPlaying(false).
func (t *Countdown) Stop() {
	t.SetPlaying(false)
}

func (t *Countdown) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

func (t *Countdown) Duration() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.duration
}

func (t *Countdown) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

// Ratio returns remaining/duration, or 0 before the first Reset.
func (t *Countdown) Ratio() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ratioLocked()
}

func (t *Countdown) Band() Band {
	return BandFor(t.Ratio())
}

func (t *Countdown) ratioLocked() float64 {
	if t.duration <= 0 {
		return 0
	}
	return float64(t.remaining) / float64(t.duration)
}

// startLocked schedules the next tick and returns the notification for the
// current value, to be run after the lock is released.
func (t *Countdown) startLocked() func() {
	if t.duration <= 0 {
		return nil
	}
	if t.remaining <= 0 {
		return t.expireLocked()
	}
	t.scheduleLocked()
	remaining := t.remaining
	return func() { t.notifyUpdate(remaining) }
}

func (t *Countdown) scheduleLocked() {
	gen := t.gen
	t.pending = t.clock.AfterFunc(tick, func() { t.fire(gen) })
}

func (t *Countdown) cancelLocked() {
	t.gen++
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}

func (t *Countdown) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.playing {
		t.mu.Unlock()
		return
	}
	t.pending = nil
	if t.remaining > 0 {
		t.remaining--
	}
	remaining := t.remaining
	var expire func()
	if remaining <= 0 {
		expire = t.expireLocked()
	} else {
		t.scheduleLocked()
	}
	t.mu.Unlock()

	t.notifyUpdate(remaining)
	if expire != nil {
		expire()
	}
}

// expireLocked latches the cycle as expired and returns the onTimeUp call, or
// nil when this cycle already fired.
func (t *Countdown) expireLocked() func() {
	if t.expired || !t.playing {
		return nil
	}
	t.expired = true
	t.cancelLocked()
	return t.notifyTimeUp
}

func (t *Countdown) notifyUpdate(remaining int) {
	if t.onUpdate != nil {
		t.onUpdate(remaining)
	}
}

func (t *Countdown) notifyTimeUp() {
	if t.onTimeUp != nil {
		t.onTimeUp()
	}
}
