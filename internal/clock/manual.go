package clock

import (
	"sort"
	"sync"
	"time"
)

// Manual is a virtual clock. Callbacks only run inside Advance, on the
// caller's goroutine, in due-time order.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	pending []*manualTimer
}

type manualTimer struct {
	clock *Manual
	due   time.Time
	seq   uint64
	fn    func()
	done  bool
}

// NewManual returns a virtual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{clock: m, due: m.now.Add(d), seq: m.seq, fn: f}
	m.pending = append(m.pending, t)
	return t
}

// Advance moves the clock forward by d and fires every callback that becomes
// due, including ones scheduled by callbacks during the advance.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.popDueLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.due
		m.mu.Unlock()

		next.fn()
	}
}

// Pending reports how many callbacks are scheduled and not yet fired or stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (m *Manual) popDueLocked(target time.Time) *manualTimer {
	if len(m.pending) == 0 {
		return nil
	}
	sort.SliceStable(m.pending, func(i, j int) bool {
		if !m.pending[i].due.Equal(m.pending[j].due) {
			return m.pending[i].due.Before(m.pending[j].due)
		}
		return m.pending[i].seq < m.pending[j].seq
	})
	first := m.pending[0]
	if first.due.After(target) {
		return nil
	}
	m.pending = m.pending[1:]
	first.done = true
	return first
}

func (t *manualTimer) Stop() bool {
	m := t.clock
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	for i, p := range m.pending {
		if p == t {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			break
		}
	}
	return true
}
