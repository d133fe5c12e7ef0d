package conversation

import (
	"iter"
	"sync"
	"time"

	"github.com/rivo/uniseg"
)

// DefaultTypingInterval is the reveal tick period.
const DefaultTypingInterval = 45 * time.Millisecond

// Prefixes yields the reveal states of text: the empty string, then one more
// grapheme cluster per step, ending with text itself.
func Prefixes(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if !yield("") {
			return
		}
		g := uniseg.NewGraphemes(text)
		for g.Next() {
			_, end := g.Positions()
			if !yield(text[:end]) {
				return
			}
		}
	}
}

// Frame is one observable reveal state.
type Frame struct {
	Epoch    uint64
	Target   string
	Revealed string
	Done     bool
}

// Animator reveals one utterance at a time on a fixed tick. Starting a new
// reveal cancels the previous one; frames carry the epoch they belong to so
// consumers can drop anything older than Epoch().
type Animator struct {
	interval time.Duration
	onFrame  func(Frame)

	mu       sync.Mutex
	epoch    uint64
	target   string
	revealed string
	running  bool
	stop     chan struct{}
}

// NewAnimator creates an idle animator. onFrame is called from the reveal
// goroutine, never while the animator holds its lock.
func NewAnimator(interval time.Duration, onFrame func(Frame)) *Animator {
	if interval <= 0 {
		interval = DefaultTypingInterval
	}
	if onFrame == nil {
		onFrame = func(Frame) {}
	}
	return &Animator{interval: interval, onFrame: onFrame}
}

// Start cancels any reveal in flight and begins revealing text from the empty prefix.
func (a *Animator) Start(text string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancelLocked()
	a.epoch++
	a.target = text
	a.revealed = ""
	a.running = true
	a.stop = make(chan struct{})

	go a.run(a.epoch, text, a.stop)
	return a.epoch
}

// Stop cancels the reveal in flight and clears the revealed text.
func (a *Animator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancelLocked()
	a.epoch++
	a.target = ""
	a.revealed = ""
}

// Revealed returns the prefix shown so far.
func (a *Animator) Revealed() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.revealed
}

// Running reports whether a reveal is still ticking.
func (a *Animator) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// Epoch identifies the current reveal.
func (a *Animator) Epoch() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.epoch
}

func (a *Animator) cancelLocked() {
	if a.stop != nil {
		close(a.stop)
		a.stop = nil
	}
	a.running = false
}

func (a *Animator) run(epoch uint64, text string, stop <-chan struct{}) {
	next, halt := iter.Pull(Prefixes(text))
	defer halt()

	prefix, _ := next()
	if !a.publish(epoch, text, prefix) {
		return
	}

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			prefix, ok := next()
			if !ok {
				return
			}
			if !a.publish(epoch, text, prefix) {
				return
			}
		}
	}
}

// publish records prefix and emits a frame. It returns false once the reveal
// is finished or superseded.
func (a *Animator) publish(epoch uint64, text, prefix string) bool {
	a.mu.Lock()
	if epoch != a.epoch {
		a.mu.Unlock()
		return false
	}
	done := len(prefix) == len(text)
	a.revealed = prefix
	if done {
		a.running = false
		a.stop = nil
	}
	a.mu.Unlock()

	a.onFrame(Frame{Epoch: epoch, Target: text, Revealed: prefix, Done: done})
	return !done
}
