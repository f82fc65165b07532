package job

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniblog/miniblog/internal/domain/model"
)

type stubWaiter struct {
	calls atomic.Int64
	fn    func(ctx context.Context, jobType model.JobType) error
}

func (w *stubWaiter) WaitForNotification(ctx context.Context, jobType model.JobType) error {
	w.calls.Add(1)
	if w.fn != nil {
		return w.fn(ctx, jobType)
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestNewNotifier_RequiresWaiter(t *testing.T) {
	_, err := NewNotifier(NotifierOptions{})
	assert.ErrorIs(t, err, ErrWaiterRequired)
}

func TestNotifier_SubscribeReceivesBroadcast(t *testing.T) {
	waiter := &stubWaiter{fn: func(_ context.Context, _ model.JobType) error {
		return nil
	}}

	n, err := NewNotifier(NotifierOptions{
		Waiter:     waiter,
		WaitWindow: 50 * time.Millisecond,
		Backoff:    10 * time.Millisecond,
	})
	require.NoError(t, err)
	defer n.StopAll()

	unsub, ch := n.Subscribe(model.JobTypeNotification)
	defer unsub()

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a wakeup after the waiter returned")
	}
}

func TestNotifier_BroadcastOnTimeout(t *testing.T) {
	// Waiter blocks until its window expires; subscribers should still wake.
	waiter := &stubWaiter{}

	n, err := NewNotifier(NotifierOptions{
		Waiter:     waiter,
		WaitWindow: 20 * time.Millisecond,
		Backoff:    5 * time.Millisecond,
	})
	require.NoError(t, err)
	defer n.StopAll()

	unsub, ch := n.Subscribe(model.JobTypeNotification)
	defer unsub()

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a wakeup after the wait window expired")
	}
}

func TestNotifier_UnsubscribeClosesChannel(t *testing.T) {
	waiter := &stubWaiter{}

	n, err := NewNotifier(NotifierOptions{
		Waiter:     waiter,
		WaitWindow: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	defer n.StopAll()

	unsub, ch := n.Subscribe(model.JobTypeNotification)
	unsub()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("expected channel to close after unsubscribe")
		}
	}
}

func TestNotifier_StopAllClosesSubscribers(t *testing.T) {
	waiter := &stubWaiter{}

	n, err := NewNotifier(NotifierOptions{
		Waiter:     waiter,
		WaitWindow: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	_, ch1 := n.Subscribe(model.JobTypeNotification)
	_, ch2 := n.Subscribe(model.JobTypeNotification)

	n.StopAll()

	for _, ch := range []<-chan struct{}{ch1, ch2} {
		deadline := time.After(2 * time.Second)
		for open := true; open; {
			select {
			case _, ok := <-ch:
				open = ok
			case <-deadline:
				t.Fatal("expected channel to close after StopAll")
			}
		}
	}
}

func TestNotifier_SingleListenerPerJobType(t *testing.T) {
	block := make(chan struct{})
	waiter := &stubWaiter{fn: func(ctx context.Context, _ model.JobType) error {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return ctx.Err()
	}}

	n, err := NewNotifier(NotifierOptions{
		Waiter:     waiter,
		WaitWindow: time.Minute,
	})
	require.NoError(t, err)
	defer func() {
		close(block)
		n.StopAll()
	}()

	unsub1, _ := n.Subscribe(model.JobTypeNotification)
	unsub2, _ := n.Subscribe(model.JobTypeNotification)
	defer unsub1()
	defer unsub2()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), waiter.calls.Load())
}
