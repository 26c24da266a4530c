package irq

import (
	"context"
	"sync"
	"testing"
	"time"
)

func drain(q *Queue[int]) []int {
	var out []int
	for {
		v, ok := q.Pop()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

func equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue[int](4)
	for round := 0; round < 3; round++ {
		for i := 0; i < 3; i++ {
			if !q.Push(round*10 + i) {
				t.Fatalf("push %d rejected", i)
			}
		}
		got := drain(q)
		want := []int{round * 10, round*10 + 1, round*10 + 2}
		if !equal(got, want) {
			t.Fatalf("round %d: got %v, want %v", round, got, want)
		}
	}
}

func TestQueueDropNewest(t *testing.T) {
	const n = 10
	q := NewQueue[int](n)
	for i := 0; i <= n; i++ {
		ok := q.Push(i)
		if i < n && !ok {
			t.Fatalf("push %d rejected below capacity", i)
		}
		if i == n && ok {
			t.Fatal("push beyond capacity accepted")
		}
	}
	got := drain(q)
	if len(got) != n {
		t.Fatalf("len = %d, want %d", len(got), n)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d, the newest item should have been dropped", i, v)
		}
	}
}

func TestQueueRemove(t *testing.T) {
	tests := []struct {
		name    string
		push    []int
		pops    int
		match   func(int) bool
		removed int
		want    []int
	}{
		{"none", []int{1, 2, 3}, 0, func(int) bool { return false }, 0, []int{1, 2, 3}},
		{"all", []int{1, 2, 3}, 0, func(int) bool { return true }, 3, nil},
		{"even", []int{1, 2, 3, 4, 5}, 0, func(v int) bool { return v%2 == 0 }, 2, []int{1, 3, 5}},
		{"wrapped", []int{9, 9, 1, 2, 3, 4, 5}, 2, func(v int) bool { return v == 2 || v == 4 }, 2, []int{1, 3, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue[int](5)
			for i, v := range tt.push {
				if i == 5 {
					for j := 0; j < tt.pops; j++ {
						q.Pop()
					}
				}
				q.Push(v)
			}
			if len(tt.push) <= 5 {
				for j := 0; j < tt.pops; j++ {
					q.Pop()
				}
			}
			if got := q.Remove(tt.match); got != tt.removed {
				t.Fatalf("removed %d, want %d", got, tt.removed)
			}
			if got := drain(q); !equal(got, tt.want) {
				t.Fatalf("remaining %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueueRemoveThenPush(t *testing.T) {
	q := NewQueue[int](3)
	q.Push(1)
	q.Push(2)
	q.Push(3)
	q.Remove(func(v int) bool { return v == 1 })
	if !q.Push(4) {
		t.Fatal("push after remove rejected")
	}
	if got := drain(q); !equal(got, []int{2, 3, 4}) {
		t.Fatalf("got %v", got)
	}
}

func TestGuardedConcurrentPush(t *testing.T) {
	var sec Section
	g := NewGuarded(&sec, NewQueue[int](1000))

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				g.With(func(q **Queue[int]) { (*q).Push(i) })
			}
		}()
	}
	wg.Wait()

	var n int
	g.With(func(q **Queue[int]) { n = (*q).Len() })
	if n != 400 {
		t.Fatalf("len = %d, want 400", n)
	}
}

func TestSignal(t *testing.T) {
	s := NewSignal()
	s.Notify()
	s.Notify()

	if err := s.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Wait(ctx); err == nil {
		t.Fatal("coalesced notifications woke twice")
	}
}
