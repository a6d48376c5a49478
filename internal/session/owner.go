package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mj1618/desktop-switch/internal/model"
)

// DefaultQueueSize bounds the command queue between the interception and
// owner contexts.
const DefaultQueueSize = 256

// Snapshotter enumerates switchable windows.
type Snapshotter interface {
	Snapshot() []model.WindowRecord
}

// Activator raises a committed window.
type Activator interface {
	Activate(ctx context.Context, rec model.WindowRecord) error
}

// Outcome summarizes a commit.
type Outcome int

const (
	// Activated means at least one activation step plausibly succeeded.
	Activated Outcome = iota
	// Uncertain means activation could not be confirmed or failed.
	Uncertain
)

func (o Outcome) String() string {
	if o == Activated {
		return "activated"
	}
	return "uncertain"
}

// CommitResult describes what happened to a committed window.
type CommitResult struct {
	SessionID string
	Record    model.WindowRecord
	Outcome   Outcome
	Err       error
}

// message is one queued item: a command or a closure to run on the owner
// goroutine.
type message struct {
	cmd Command
	fn  func()
}

// Owner is the single goroutine that owns the session. Other goroutines
// communicate with it only through Post and Exec.
type Owner struct {
	queue     chan message
	machine   *Machine
	activator Activator
	log       *slog.Logger
	onCommit  func(CommitResult)

	state   atomic.Pointer[State]
	dropped atomic.Int64

	subsMu sync.Mutex
	subs   map[chan State]struct{}
}

// Option configures an Owner.
type Option func(*Owner)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Owner) {
		if l != nil {
			o.log = l
		}
	}
}

// WithQueueSize sets the command queue capacity.
func WithQueueSize(n int) Option {
	return func(o *Owner) {
		if n > 0 {
			o.queue = make(chan message, n)
		}
	}
}

// WithCommitHook registers fn to receive every commit result. fn runs on the
// owner goroutine.
func WithCommitHook(fn func(CommitResult)) Option {
	return func(o *Owner) {
		o.onCommit = fn
	}
}

// NewOwner creates an idle owner. act may be nil, in which case commits
// always report Uncertain.
func NewOwner(snap Snapshotter, act Activator, opts ...Option) *Owner {
	var fn SnapshotFunc
	if snap != nil {
		fn = snap.Snapshot
	}
	o := &Owner{
		queue:     make(chan message, DefaultQueueSize),
		machine:   NewMachine(fn),
		activator: act,
		log:       slog.Default(),
		subs:      make(map[chan State]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	idle := State{}
	o.state.Store(&idle)
	return o
}

// Post enqueues cmd without blocking. It returns false, and counts a drop,
// when the queue is full.
func (o *Owner) Post(cmd Command) bool {
	select {
	case o.queue <- message{cmd: cmd}:
		return true
	default:
		o.dropped.Add(1)
		return false
	}
}

// Exec enqueues fn to run on the owner goroutine, in order with commands.
func (o *Owner) Exec(fn func()) bool {
	select {
	case o.queue <- message{fn: fn}:
		return true
	default:
		o.dropped.Add(1)
		return false
	}
}

// Dropped returns how many posts were rejected because the queue was full.
func (o *Owner) Dropped() int64 {
	return o.dropped.Load()
}

// State returns the latest published state.
func (o *Owner) State() State {
	return *o.state.Load()
}

// Subscribe returns a channel that always holds the most recent state not yet
// received; older undelivered states are replaced. Call cancel to unsubscribe.
func (o *Owner) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	ch <- o.State()
	o.subsMu.Lock()
	o.subs[ch] = struct{}{}
	o.subsMu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.subsMu.Lock()
			delete(o.subs, ch)
			o.subsMu.Unlock()
		})
	}
}

// Run processes queued messages until ctx is done. It must be called from
// exactly one goroutine.
func (o *Owner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-o.queue:
			if msg.fn != nil {
				msg.fn()
				continue
			}
			o.handle(ctx, msg.cmd)
		}
	}
}

func (o *Owner) handle(ctx context.Context, cmd Command) {
	wasVisible := o.machine.Visible()
	prev := o.machine.State()
	openedAt := o.machine.OpenedAt()

	target, changed := o.machine.Apply(cmd)
	if !changed {
		if cmd == CmdOpen && !wasVisible {
			o.log.Debug("nothing to switch to")
		}
		return
	}
	state := o.machine.State()
	o.publish(state)

	switch {
	case target != nil:
		o.log.Debug("session committed",
			"session", prev.SessionID,
			"pid", target.PID,
			"title", target.Title,
			"held", time.Since(openedAt))
		o.commit(ctx, prev.SessionID, *target)
	case !wasVisible && state.Visible:
		o.log.Debug("session opened", "session", state.SessionID, "windows", len(state.Windows))
	case wasVisible && !state.Visible:
		o.log.Debug("session cancelled", "session", prev.SessionID)
	}
}

func (o *Owner) commit(ctx context.Context, id string, rec model.WindowRecord) {
	res := CommitResult{SessionID: id, Record: rec, Outcome: Uncertain}
	if o.activator != nil {
		res.Err = o.activator.Activate(ctx, rec)
		if res.Err == nil {
			res.Outcome = Activated
		}
	}
	if res.Outcome == Uncertain {
		o.log.Warn("activation uncertain", "session", id, "pid", rec.PID, "title", rec.Title, "error", res.Err)
	}
	if o.onCommit != nil {
		o.onCommit(res)
	}
}

func (o *Owner) publish(s State) {
	o.state.Store(&s)
	o.subsMu.Lock()
	defer o.subsMu.Unlock()
	for ch := range o.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}
