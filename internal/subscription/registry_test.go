package subscription

import (
	"fmt"
	"slices"
	"sync"
	"testing"
)

func TestRegistry_AttachTransitions(t *testing.T) {
	r := NewRegistry()

	if !r.Attach("c1", "AAPL") {
		t.Error("first Attach should report 0→1")
	}
	if r.Attach("c1", "AAPL") {
		t.Error("repeated Attach should be a no-op")
	}
	if r.Attach("c2", "AAPL") {
		t.Error("second subscriber should not report 0→1")
	}
	if r.Count("AAPL") != 2 {
		t.Errorf("Count(AAPL) = %d, want 2", r.Count("AAPL"))
	}
}

func TestRegistry_DetachTransitions(t *testing.T) {
	r := NewRegistry()
	r.Attach("c1", "AAPL")
	r.Attach("c2", "AAPL")

	if r.Detach("c1", "AAPL") {
		t.Error("Detach with remaining subscriber should not report 1→0")
	}
	if r.Detach("c1", "AAPL") {
		t.Error("repeated Detach should be a no-op")
	}
	if !r.Detach("c2", "AAPL") {
		t.Error("last Detach should report 1→0")
	}
	if got := r.ActiveSymbols(); len(got) != 0 {
		t.Errorf("ActiveSymbols() = %v, want empty", got)
	}
	if r.Detach("c3", "MSFT") {
		t.Error("Detach of unknown client should be a no-op")
	}
	if s := r.Stats(); s.Clients != 0 || s.Symbols != 0 {
		t.Errorf("Stats() after last Detach = %+v, want zero", s)
	}
	if got := r.SymbolsOf("c1"); len(got) != 0 {
		t.Errorf("SymbolsOf(c1) = %v, want empty", got)
	}
}

func TestRegistry_AttachIgnoresEmpty(t *testing.T) {
	r := NewRegistry()

	if r.Attach("", "AAPL") {
		t.Error("Attach with empty client should be ignored")
	}
	if r.Attach("c1", "") {
		t.Error("Attach with empty symbol should be ignored")
	}
	if s := r.Stats(); s.Clients != 0 || s.Symbols != 0 {
		t.Errorf("Stats() = %+v, want zero", s)
	}
}

func TestRegistry_DetachAll(t *testing.T) {
	r := NewRegistry()
	r.Attach("c1", "AAPL")
	r.Attach("c1", "MSFT")
	r.Attach("c1", "TSLA")
	r.Attach("c2", "MSFT")

	released := r.DetachAll("c1")
	want := []string{"AAPL", "TSLA"}
	if !slices.Equal(released, want) {
		t.Errorf("DetachAll() = %v, want %v", released, want)
	}

	for _, sym := range []string{"AAPL", "MSFT", "TSLA"} {
		if slices.Contains(r.SubscribersOf(sym), "c1") {
			t.Errorf("SubscribersOf(%s) still contains c1", sym)
		}
	}
	if got := r.SymbolsOf("c1"); len(got) != 0 {
		t.Errorf("SymbolsOf(c1) = %v, want empty", got)
	}
	if got := r.ActiveSymbols(); !slices.Equal(got, []string{"MSFT"}) {
		t.Errorf("ActiveSymbols() = %v, want [MSFT]", got)
	}
	if s := r.Stats(); s.Clients != 1 {
		t.Errorf("Stats().Clients = %d, want 1", s.Clients)
	}

	if got := r.DetachAll("c1"); got != nil {
		t.Errorf("second DetachAll() = %v, want nil", got)
	}
}

func TestRegistry_SubscribersOfUnknown(t *testing.T) {
	r := NewRegistry()
	if got := r.SubscribersOf("NOPE"); len(got) != 0 {
		t.Errorf("SubscribersOf(NOPE) = %v, want empty", got)
	}
}

func TestRegistry_ActiveSymbolsSorted(t *testing.T) {
	r := NewRegistry()
	r.Attach("c1", "TSLA")
	r.Attach("c2", "AAPL")
	r.Attach("c3", "MSFT")

	want := []string{"AAPL", "MSFT", "TSLA"}
	if got := r.ActiveSymbols(); !slices.Equal(got, want) {
		t.Errorf("ActiveSymbols() = %v, want %v", got, want)
	}
}

// Across any interleaving, the number of 0→1 transitions minus 1→0
// transitions equals the number of active symbols.
func TestRegistry_TransitionBalance(t *testing.T) {
	r := NewRegistry()
	symbols := []string{"AAPL", "MSFT", "TSLA", "NVDA"}

	var mu sync.Mutex
	up, down := 0, 0

	var wg sync.WaitGroup
	for c := 0; c < 8; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", c)
			for i := 0; i < 200; i++ {
				sym := symbols[(c+i)%len(symbols)]
				var a, d bool
				if i%3 == 2 {
					d = r.Detach(id, sym)
				} else {
					a = r.Attach(id, sym)
				}
				mu.Lock()
				if a {
					up++
				}
				if d {
					down++
				}
				mu.Unlock()
			}
		}(c)
	}
	wg.Wait()

	if got := len(r.ActiveSymbols()); up-down != got {
		t.Errorf("up(%d) - down(%d) = %d, want %d active symbols", up, down, up-down, got)
	}

	for _, sym := range symbols {
		for _, id := range r.SubscribersOf(sym) {
			if !slices.Contains(r.SymbolsOf(id), sym) {
				t.Errorf("index mismatch: %s lists %s but not vice versa", sym, id)
			}
		}
	}
}
