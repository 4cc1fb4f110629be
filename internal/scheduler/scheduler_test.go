package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestClampInterval(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want time.Duration
	}{
		{0, MinInterval},
		{time.Minute, MinInterval},
		{MinInterval, MinInterval},
		{time.Hour, time.Hour},
	}
	for _, tc := range cases {
		if got := ClampInterval(tc.in); got != tc.want {
			t.Errorf("ClampInterval(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

// Every registered job runs once shortly after Start, before any interval
// elapses.
func TestInitialRun(t *testing.T) {
	s := New()
	s.grace = 10 * time.Millisecond

	var first, second atomic.Int64
	if err := s.Add("first", time.Hour, func() { first.Add(1) }); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Add("second", time.Hour, func() { second.Add(1) }); err != nil {
		t.Fatalf("add: %v", err)
	}

	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if first.Load() == 1 && second.Load() == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("initial run incomplete: first=%d second=%d", first.Load(), second.Load())
}
