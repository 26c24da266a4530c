package irq

import (
	"sync"
	"testing"

	"github.com/wippyai/firmlet/errors"
)

const (
	lineA Line = iota
	lineB
)

func TestControllerMaskedUntilUnmask(t *testing.T) {
	c := NewController()
	var ran int
	c.Register(lineA, "A", func() { ran++ })

	for i := 0; i < 3; i++ {
		if err := c.Raise(lineA); err != nil {
			t.Fatal(err)
		}
	}
	if ran != 0 {
		t.Fatalf("handler ran %d times while masked", ran)
	}
	if !c.Pending(lineA) {
		t.Fatal("line not pending")
	}

	c.Unmask(lineA)
	if ran != 1 {
		t.Fatalf("pending raises should coalesce into one run, got %d", ran)
	}
	if c.Pending(lineA) {
		t.Fatal("still pending after unmask")
	}

	_ = c.Raise(lineA)
	if ran != 2 {
		t.Fatalf("ran = %d, want 2", ran)
	}
	if c.Count(lineA) != 2 {
		t.Fatalf("count = %d", c.Count(lineA))
	}
}

func TestControllerUnknownLine(t *testing.T) {
	c := NewController()
	err := c.Raise(lineB)
	if !errors.Is(err, &errors.Error{Phase: errors.PhaseInterrupt, Kind: errors.KindNotFound}) {
		t.Fatalf("err = %v", err)
	}
}

func TestControllerSerializesHandlers(t *testing.T) {
	c := NewController()
	var active, overlap int
	var mu sync.Mutex
	h := func() {
		mu.Lock()
		active++
		if active > 1 {
			overlap++
		}
		mu.Unlock()
		for i := 0; i < 1000; i++ {
			_ = i
		}
		mu.Lock()
		active--
		mu.Unlock()
	}
	c.Register(lineA, "A", h)
	c.Register(lineB, "B", h)

	var names []string
	c.OnDispatch = func(name string) { names = append(names, name) }
	c.UnmaskAll()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); _ = c.Raise(lineA) }()
		go func() { defer wg.Done(); _ = c.Raise(lineB) }()
	}
	wg.Wait()

	if overlap != 0 {
		t.Fatalf("handlers overlapped %d times", overlap)
	}
	if len(names) != 100 {
		t.Fatalf("dispatched %d, want 100", len(names))
	}
	if c.Name(lineB) != "B" {
		t.Fatalf("name = %q", c.Name(lineB))
	}
}
