package breaker

import (
	"sync"
	"time"
)

// State of the circuit: Closed lets calls through, Open rejects them until the
// cooldown elapses, HalfOpen lets exactly one probe through.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

type Event int

const (
	EventSuccess Event = iota
	EventFailure
	EventCooldown
)

// Next is the pure transition function of the breaker. failures is the number
// of consecutive failures including the one being reported.
func Next(s State, e Event, failures, threshold int) State {
	switch s {
	case Closed:
		if e == EventFailure && failures >= threshold {
			return Open
		}
		return Closed
	case Open:
		if e == EventCooldown {
			return HalfOpen
		}
		return Open
	case HalfOpen:
		switch e {
		case EventSuccess:
			return Closed
		case EventFailure:
			return Open
		}
		return HalfOpen
	}
	return s
}

// Breaker guards a single remote dependency. It is shared process-wide and
// safe for concurrent use.
type Breaker struct {
	mu        sync.Mutex
	state     State
	failures  int
	openedAt  time.Time
	probing   bool
	threshold int
	cooldown  time.Duration

	onChange func(State)
}

func New(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{state: Closed, threshold: threshold, cooldown: cooldown}
}

// OnStateChange registers a callback fired on every transition, used to keep a
// metrics gauge in sync. Must be set before the breaker is shared.
func (b *Breaker) OnStateChange(fn func(State)) { b.onChange = fn }

// Allow reports whether a call may be issued now. In HalfOpen only a single
// probe is admitted until its result is recorded.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if time.Since(b.openedAt) < b.cooldown {
			return false
		}
		b.transition(Next(Open, EventCooldown, b.failures, b.threshold))
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return false
}

// Record feeds the result of an admitted call back into the state machine.
func (b *Breaker) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	event := EventFailure
	if success {
		event = EventSuccess
		b.failures = 0
	} else {
		b.failures++
	}

	if b.state == HalfOpen {
		b.probing = false
	}

	next := Next(b.state, event, b.failures, b.threshold)
	if next != b.state {
		if next == Open {
			b.openedAt = time.Now()
		}
		b.transition(next)
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) transition(next State) {
	b.state = next
	if b.onChange != nil {
		b.onChange(next)
	}
}
