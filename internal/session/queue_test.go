package session

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestQueue_BasicPushReceive(t *testing.T) {
	q := NewQueue[int](10)

	for i := 0; i < 5; i++ {
		if q.Push(i) {
			t.Fatalf("Push(%d) reported a drop", i)
		}
	}

	if q.Len() != 5 {
		t.Errorf("Len() = %d, want 5", q.Len())
	}

	for i := 0; i < 5; i++ {
		val, ok := q.TryReceive()
		if !ok {
			t.Fatalf("TryReceive() returned false for item %d", i)
		}
		if val != i {
			t.Errorf("received %d, want %d", val, i)
		}
	}

	if _, ok := q.TryReceive(); ok {
		t.Error("TryReceive() on empty queue returned true")
	}
}

func TestQueue_DropOldest(t *testing.T) {
	q := NewQueue[int](100)

	for i := 1; i <= 100; i++ {
		if q.Push(i) {
			t.Fatalf("Push(%d) dropped before capacity reached", i)
		}
	}

	if !q.Push(101) {
		t.Error("Push(101) should report dropping the oldest item")
	}

	if q.Len() != 100 {
		t.Errorf("Len() = %d, want 100", q.Len())
	}

	items := q.Snapshot()
	if items[0] != 2 {
		t.Errorf("oldest item = %d, want 2 (item 1 evicted)", items[0])
	}
	if items[len(items)-1] != 101 {
		t.Errorf("newest item = %d, want 101", items[len(items)-1])
	}
	for _, v := range items {
		if v == 1 {
			t.Fatal("item 1 should have been evicted")
		}
	}

	stats := q.Stats()
	if stats.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", stats.Dropped)
	}
	if stats.Pushed != 101 {
		t.Errorf("Pushed = %d, want 101", stats.Pushed)
	}
}

func TestQueue_NeverExceedsCapacity(t *testing.T) {
	q := NewQueue[int](3)

	for i := 0; i < 1000; i++ {
		q.Push(i)
		if q.Len() > 3 {
			t.Fatalf("Len() = %d after %d pushes, exceeds capacity 3", q.Len(), i+1)
		}
	}

	items := q.Snapshot()
	want := []int{997, 998, 999}
	for i := range want {
		if items[i] != want[i] {
			t.Errorf("items[%d] = %d, want %d", i, items[i], want[i])
		}
	}
}

func TestQueue_OrderAcrossWrap(t *testing.T) {
	q := NewQueue[int](4)

	q.Push(1)
	q.Push(2)
	q.TryReceive()
	q.Push(3)
	q.Push(4)
	q.Push(5)
	q.Push(6) // evicts 2

	for _, want := range []int{3, 4, 5, 6} {
		got, ok := q.TryReceive()
		if !ok {
			t.Fatalf("TryReceive() returned false, want %d", want)
		}
		if got != want {
			t.Errorf("received %d, want %d", got, want)
		}
	}
}

func TestQueue_BlockingReceive(t *testing.T) {
	q := NewQueue[int](10)

	received := make(chan int, 1)
	go func() {
		val, ok := q.Receive(context.Background())
		if ok {
			received <- val
		}
	}()

	// Give receiver time to start waiting
	time.Sleep(10 * time.Millisecond)

	q.Push(42)

	select {
	case val := <-received:
		if val != 42 {
			t.Errorf("received %d, want 42", val)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for receive")
	}
}

func TestQueue_ReceiveContextCancel(t *testing.T) {
	q := NewQueue[int](10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Receive(ctx)
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Error("Receive() returned true after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("Receive() did not return after cancel")
	}
}

func TestQueue_CloseWakesReceiver(t *testing.T) {
	q := NewQueue[int](10)

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Receive(context.Background())
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("Receive() returned true after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("Receive() did not return after Close")
	}

	// Push after close is ignored and must not panic
	q.Push(1)
	if q.Len() != 0 {
		t.Errorf("Len() = %d after push to closed queue, want 0", q.Len())
	}

	// Double close is a no-op
	q.Close()
}

func TestQueue_ConcurrentProducerConsumer(t *testing.T) {
	q := NewQueue[int](16)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const total = 10000
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			q.Push(i)
		}
	}()

	last := -1
	got := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			v, ok := q.Receive(ctx)
			if !ok {
				return
			}
			if v <= last {
				t.Errorf("out of order: %d after %d", v, last)
				return
			}
			last = v
			got++
			if v == total-1 {
				return
			}
		}
	}()

	wg.Wait()
	<-done

	stats := q.Stats()
	if int64(got)+stats.Dropped+int64(stats.Count) != total {
		t.Errorf("delivered %d + dropped %d + buffered %d != %d", got, stats.Dropped, stats.Count, total)
	}
}
