package pipeline

import (
	"testing"
	"time"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	q.Enqueue(1)
	q.Enqueue(2)
	q.Enqueue(3)

	for want := 1; want <= 3; want++ {
		got, ok := q.Dequeue()
		if !ok || got != want {
			t.Fatalf("expected %d, got %d (ok=%v)", want, got, ok)
		}
	}
}

// A key already queued or in flight must not be enqueued twice.
func TestQueueDeduplicates(t *testing.T) {
	q := NewQueue()
	if !q.Enqueue(7) {
		t.Fatal("first enqueue rejected")
	}
	if q.Enqueue(7) {
		t.Fatal("duplicate enqueue accepted while queued")
	}

	key, _ := q.Dequeue()
	if key != 7 {
		t.Fatalf("dequeued %d", key)
	}
	// Still in flight: the worker has not called Done yet.
	if q.Enqueue(7) {
		t.Fatal("duplicate enqueue accepted while in flight")
	}

	q.Done(7)
	if !q.Enqueue(7) {
		t.Fatal("enqueue rejected after completion")
	}
}

func TestQueueBlocksUntilEnqueue(t *testing.T) {
	q := NewQueue()
	got := make(chan int)
	go func() {
		key, _ := q.Dequeue()
		got <- key
	}()

	time.Sleep(10 * time.Millisecond)
	q.Enqueue(5)

	select {
	case key := <-got:
		if key != 5 {
			t.Fatalf("dequeued %d", key)
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not wake up")
	}
}

func TestQueueCloseDrainsThenStops(t *testing.T) {
	q := NewQueue()
	q.Enqueue(1)
	q.Close()

	if key, ok := q.Dequeue(); !ok || key != 1 {
		t.Fatalf("expected to drain 1, got %d (ok=%v)", key, ok)
	}
	if _, ok := q.Dequeue(); ok {
		t.Fatal("dequeue succeeded on closed empty queue")
	}
	if q.Enqueue(2) {
		t.Fatal("enqueue accepted after close")
	}
}

func TestQueueCounts(t *testing.T) {
	q := NewQueue()
	q.Enqueue(1)
	q.Enqueue(2)
	if q.Len() != 2 || q.InFlight() != 2 {
		t.Fatalf("len=%d inflight=%d", q.Len(), q.InFlight())
	}

	q.Dequeue()
	if q.Len() != 1 || q.InFlight() != 2 {
		t.Fatalf("after dequeue: len=%d inflight=%d", q.Len(), q.InFlight())
	}

	q.Done(1)
	if q.InFlight() != 1 {
		t.Fatalf("after done: inflight=%d", q.InFlight())
	}
}
