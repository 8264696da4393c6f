package session

import (
	"sync"
	"time"
)

// AckFunc is invoked when a quiet period elapses after a burst of added
// items. It receives the user, the number of items added over the whole
// burst, and the session total captured by the last Arm call.
type AckFunc func(userID int64, added, total int)

// CountFunc reports the current item count of the user's session, or
// false when no session is open. The notifier re-checks it at fire time.
type CountFunc func(userID int64) (int, bool)

// pending entries persist per user so the generation counter is
// monotonic across arm/cancel cycles; armed marks a live timer. added
// accumulates across re-arms within one quiet period, so the eventual
// acknowledgment reports the whole settled burst.
type pending struct {
	timer *time.Timer
	gen   uint64
	armed bool
	added int
}

// Notifier coalesces bursts of item additions into a single acknowledgment
// per quiet window. Re-arming cancels the prior timer; a generation counter
// compared at fire time keeps cancellation race-free against a timer that
// is already running.
type Notifier struct {
	window time.Duration
	count  CountFunc
	ack    AckFunc

	mu      sync.Mutex
	pending map[int64]*pending
}

// NewNotifier creates a Notifier firing after the given quiet window.
func NewNotifier(window time.Duration, count CountFunc, ack AckFunc) *Notifier {
	return &Notifier{
		window:  window,
		count:   count,
		ack:     ack,
		pending: make(map[int64]*pending),
	}
}

// Arm schedules an acknowledgment after the quiet window, replacing any
// not-yet-fired timer for the same user. The most recent call's total
// wins; added counts accumulate until the window finally elapses.
func (n *Notifier) Arm(userID int64, added, total int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	p, ok := n.pending[userID]
	if !ok {
		p = &pending{}
		n.pending[userID] = p
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.gen++
	if p.armed {
		p.added += added
	} else {
		p.added = added
	}
	p.armed = true

	gen := p.gen
	p.timer = time.AfterFunc(n.window, func() {
		n.fire(userID, gen, total)
	})
}

// Cancel stops any pending timer for the user. A timer whose callback has
// already started will see a bumped generation and emit nothing.
func (n *Notifier) Cancel(userID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if p, ok := n.pending[userID]; ok && p.armed {
		p.timer.Stop()
		p.gen++
		p.armed = false
		p.added = 0
	}
}

// Pending reports whether a timer is currently armed for the user.
func (n *Notifier) Pending(userID int64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.pending[userID]
	return ok && p.armed
}

func (n *Notifier) fire(userID int64, gen uint64, total int) {
	n.mu.Lock()
	p, ok := n.pending[userID]
	if !ok || !p.armed || p.gen != gen {
		n.mu.Unlock()
		return
	}
	p.armed = false
	added := p.added
	p.added = 0
	n.mu.Unlock()

	// The session may have been torn down, or more items may have landed
	// between the timer firing and this check (a newer timer would then
	// own the acknowledgment).
	current, active := n.count(userID)
	if !active || current != total {
		return
	}

	n.ack(userID, added, total)
}
