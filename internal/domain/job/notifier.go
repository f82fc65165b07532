package job

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/miniblog/miniblog/internal/domain/model"
)

// ErrWaiterRequired indicates a notifier cannot be constructed without a waiter.
var ErrWaiterRequired = errors.New("notifier waiter is required")

// Waiter waits for job availability notifications from the durable queue.
type Waiter interface {
	WaitForNotification(ctx context.Context, jobType model.JobType) error
}

// Notifier manages subscriptions for job availability notifications.
type Notifier interface {
	Subscribe(jobType model.JobType) (func(), <-chan struct{})
	StopAll()
}

// NotifierOptions configure the default notifier. WaitWindow bounds a single
// blocking wait on the queue; Backoff spaces out retries after a wait error.
type NotifierOptions struct {
	Waiter     Waiter
	WaitWindow time.Duration
	Backoff    time.Duration
}

// DefaultNotifier fans the durable queue's per-type wakeup signal out to any
// number of in-process subscribers. It runs at most one watch goroutine per
// job type, started lazily by the first Subscribe and torn down when the last
// subscriber leaves.
type DefaultNotifier struct {
	waiter     Waiter
	waitWindow time.Duration
	backoff    time.Duration

	mu       sync.Mutex
	subs     map[model.JobType]map[chan struct{}]struct{}
	watchers map[model.JobType]context.CancelFunc
}

// NewNotifier constructs the default notifier implementation.
func NewNotifier(opts NotifierOptions) (*DefaultNotifier, error) {
	if opts.Waiter == nil {
		return nil, ErrWaiterRequired
	}

	waitWindow := opts.WaitWindow
	if waitWindow <= 0 {
		waitWindow = time.Minute
	}

	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}

	return &DefaultNotifier{
		waiter:     opts.Waiter,
		waitWindow: waitWindow,
		backoff:    backoff,
		subs:       make(map[model.JobType]map[chan struct{}]struct{}),
		watchers:   make(map[model.JobType]context.CancelFunc),
	}, nil
}

// Subscribe registers interest in a job type. The returned channel carries a
// token whenever new jobs may be available; the returned func unsubscribes.
// The channel has a one-token buffer, so bursts of wakeups coalesce.
func (n *DefaultNotifier) Subscribe(jobType model.JobType) (func(), <-chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, running := n.watchers[jobType]; !running {
		ctx, cancel := context.WithCancel(context.Background())
		n.watchers[jobType] = cancel
		go n.watch(ctx, jobType)
	}

	ch := make(chan struct{}, 1)
	if n.subs[jobType] == nil {
		n.subs[jobType] = make(map[chan struct{}]struct{})
	}
	n.subs[jobType][ch] = struct{}{}

	unsub := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if _, ok := n.subs[jobType][ch]; !ok {
			return
		}
		delete(n.subs[jobType], ch)
		flushAndClose(ch)
		if len(n.subs[jobType]) == 0 {
			delete(n.subs, jobType)
			if cancel, ok := n.watchers[jobType]; ok {
				cancel()
				delete(n.watchers, jobType)
			}
		}
	}

	return unsub, ch
}

// StopAll cancels every watcher and closes all subscriber channels.
func (n *DefaultNotifier) StopAll() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for jobType, cancel := range n.watchers {
		cancel()
		delete(n.watchers, jobType)
	}
	for jobType, subscribers := range n.subs {
		for ch := range subscribers {
			flushAndClose(ch)
		}
		delete(n.subs, jobType)
	}
}

func (n *DefaultNotifier) watch(ctx context.Context, jobType model.JobType) {
	for ctx.Err() == nil {
		waitCtx, cancel := context.WithTimeout(ctx, n.waitWindow)
		err := n.waiter.WaitForNotification(waitCtx, jobType)
		cancel()

		// Wake subscribers on timeout too, so a missed pg_notify only delays
		// pickup by one wait window instead of stalling workers.
		n.wake(jobType)

		if err == nil || ctx.Err() != nil {
			continue
		}
		timer := time.NewTimer(n.backoff)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

func (n *DefaultNotifier) wake(jobType model.JobType) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.subs[jobType] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// flushAndClose drops any buffered token before closing so receivers observe
// the closed channel immediately.
func flushAndClose(ch chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			close(ch)
			return
		}
	}
}

var _ Notifier = (*DefaultNotifier)(nil)
