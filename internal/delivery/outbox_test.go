package delivery_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/khangtgr/assessly/internal/delivery"
)

func TestOutboxDeliversJobs(t *testing.T) {
	o := delivery.NewOutbox(3, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Start(ctx)
	defer o.Close()

	var mu sync.Mutex
	var got []string
	for _, label := range []string{"a", "b", "c"} {
		label := label
		o.Enqueue(label, func(context.Context) error {
			mu.Lock()
			got = append(got, label)
			mu.Unlock()
			return nil
		})
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	})
}

func TestOutboxRetriesThenSucceeds(t *testing.T) {
	o := delivery.NewOutbox(3, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Start(ctx)
	defer o.Close()

	var mu sync.Mutex
	calls := 0
	o.Enqueue("flaky", func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 3
	})
}

func TestOutboxDropsAfterBoundedRetries(t *testing.T) {
	o := delivery.NewOutbox(2, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Start(ctx)
	defer o.Close()

	var mu sync.Mutex
	failing := 0
	o.Enqueue("doomed", func(context.Context) error {
		mu.Lock()
		failing++
		mu.Unlock()
		return errors.New("permanent")
	})
	delivered := make(chan struct{})
	o.Enqueue("after", func(context.Context) error {
		close(delivered)
		return nil
	})

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("queue wedged: job after a doomed one never ran")
	}
	mu.Lock()
	defer mu.Unlock()
	if failing != 2 {
		t.Fatalf("doomed job ran %d times, want bounded 2", failing)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}
