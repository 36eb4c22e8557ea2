package game

import "time"

// task is a deferred callback that runs under the session lock. A task that
// was cancelled, or whose session has closed, never runs.
type task struct {
	timer *time.Timer
	done  bool
}

// Cancel stops the task. Callers hold the session lock.
func (t *task) Cancel() {
	if t == nil || t.done {
		return
	}
	t.done = true
	t.timer.Stop()
}

// tasks is the set of pending callbacks owned by one entity.
type tasks struct {
	pending []*task
}

func (ts *tasks) add(t *task) {
	live := ts.pending[:0]
	for _, p := range ts.pending {
		if !p.done {
			live = append(live, p)
		}
	}
	ts.pending = append(live, t)
}

func (ts *tasks) cancelAll() {
	for _, t := range ts.pending {
		t.Cancel()
	}
	ts.pending = nil
}

func ms(v float64) time.Duration {
	return time.Duration(v * float64(time.Millisecond))
}

// after schedules fn to run once after d milliseconds, owned by owner.
// Callers hold s.mu.
func (s *Session) after(owner *tasks, d float64, name string, fn func()) *task {
	t := &task{}
	t.timer = time.AfterFunc(ms(d), func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t.done || s.closed {
			return
		}
		t.done = true
		s.guard(name, fn)
	})
	owner.add(t)
	return t
}
