package pipeline

import (
	"sync"
	"time"
)

// FaultCapacity is how many recent stage faults are kept for
// diagnostics.
const FaultCapacity = 50

// Fault is one recorded stage failure.
type Fault struct {
	Stage string    `json:"stage"`
	Error string    `json:"error"`
	Tick  uint64    `json:"tick"`
	At    time.Time `json:"at"`
}

// FaultRing is a fixed-capacity ring of the most recent faults.
// Recording never allocates past the initial buffer.
type FaultRing struct {
	mu    sync.Mutex
	buf   []Fault
	next  int
	count int
	total uint64
}

// NewFaultRing creates a ring holding the last n faults.
func NewFaultRing(n int) *FaultRing {
	if n < 1 {
		n = 1
	}
	return &FaultRing{buf: make([]Fault, n)}
}

// Record stores a fault, evicting the oldest once full.
func (r *FaultRing) Record(f Fault) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = f
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
	r.total++
}

// List returns the kept faults, oldest first.
func (r *FaultRing) List() []Fault {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Fault, 0, r.count)
	if r.count < len(r.buf) {
		return append(out, r.buf[:r.count]...)
	}
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}

// Last returns the most recent fault.
func (r *FaultRing) Last() (Fault, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		return Fault{}, false
	}
	return r.buf[(r.next-1+len(r.buf))%len(r.buf)], true
}

// Total returns how many faults were ever recorded.
func (r *FaultRing) Total() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}
