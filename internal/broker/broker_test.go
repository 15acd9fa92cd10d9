package broker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResolveDeliversToAwait(t *testing.T) {
	b := New()
	done := make(chan struct{})
	var gotValue any
	var gotErr error

	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		gotValue, gotErr = b.Await(ctx, "gs-1", "chars:alice")
	}()

	// Give the goroutine a chance to register before resolving.
	time.Sleep(10 * time.Millisecond)
	if err := b.Resolve("gs-1", "chars:alice", []string{"Alice1"}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	<-done
	if gotErr != nil {
		t.Fatalf("unexpected error: %v", gotErr)
	}
	chars, ok := gotValue.([]string)
	if !ok || len(chars) != 1 || chars[0] != "Alice1" {
		t.Errorf("unexpected value: %#v", gotValue)
	}
}

func TestAwaitTimesOut(t *testing.T) {
	b := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := b.Await(ctx, "gs-1", "chars:bob")
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestSecondAwaitSupersedesFirst(t *testing.T) {
	b := New()
	firstDone := make(chan error, 1)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, err := b.Await(ctx, "gs-1", "chars:carol")
		firstDone <- err
	}()

	time.Sleep(10 * time.Millisecond)

	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	go func() {
		time.Sleep(10 * time.Millisecond)
		b.Resolve("gs-1", "chars:carol", "second")
	}()
	val, err := b.Await(ctx2, "gs-1", "chars:carol")
	if err != nil {
		t.Fatalf("second Await: %v", err)
	}
	if val != "second" {
		t.Errorf("expected second value, got %v", val)
	}

	if err := <-firstDone; !errors.Is(err, ErrSuperseded) {
		t.Errorf("expected first Await to be superseded, got %v", err)
	}
}

func TestUnregisterFailsAllPending(t *testing.T) {
	b := New()
	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, err := b.Await(ctx, "gs-1", "chars:dave")
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	b.Unregister("gs-1")

	if err := <-done; !errors.Is(err, ErrPeerGone) {
		t.Errorf("expected ErrPeerGone, got %v", err)
	}
}

func TestResolveWithNoPendingReturnsError(t *testing.T) {
	b := New()
	if err := b.Resolve("gs-1", "unknown", "x"); !errors.Is(err, ErrNoSuchPending) {
		t.Errorf("expected ErrNoSuchPending, got %v", err)
	}
}

func TestBroadcastFanOut(t *testing.T) {
	seen := make(chan string, 3)
	results := Broadcast(context.Background(), []string{"a", "b", "c"}, func(ctx context.Context, peerID string) error {
		seen <- peerID
		return nil
	})
	close(seen)
	count := 0
	for range seen {
		count++
	}
	if count != 3 {
		t.Errorf("expected 3 calls, got %d", count)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("peer %s: unexpected error %v", r.PeerID, r.Err)
		}
	}
}

func TestBroadcastIsolatesPerPeerErrors(t *testing.T) {
	boom := errors.New("boom")
	results := Broadcast(context.Background(), []string{"a", "b"}, func(ctx context.Context, peerID string) error {
		if peerID == "a" {
			return boom
		}
		return nil
	})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		switch r.PeerID {
		case "a":
			if !errors.Is(r.Err, boom) {
				t.Errorf("peer a: expected boom, got %v", r.Err)
			}
		case "b":
			if r.Err != nil {
				t.Errorf("peer b: expected no error, got %v", r.Err)
			}
		}
	}
}
