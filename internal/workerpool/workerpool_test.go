package workerpool

import (
	"sync/atomic"
	"testing"
)

func TestRunDispatchesAllJobs(t *testing.T) {
	p := New(4)
	defer p.Destroy()

	var counter int64
	err := p.Run(100, func(i int64) error {
		atomic.AddInt64(&counter, 1)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if counter != 100 {
		t.Fatalf("counter = %d, want 100", counter)
	}
}

func TestRunReturnsFirstError(t *testing.T) {
	p := New(2)
	defer p.Destroy()

	sentinel := errTest("boom")
	err := p.Run(10, func(i int64) error {
		if i == 5 {
			return sentinel
		}
		return nil
	})
	if err != sentinel {
		t.Fatalf("err = %v, want %v", err, sentinel)
	}
}

func TestPoolReusedAcrossCalls(t *testing.T) {
	p := New(3)
	defer p.Destroy()

	for round := 0; round < 5; round++ {
		var counter int64
		if err := p.Run(20, func(i int64) error {
			atomic.AddInt64(&counter, 1)
			return nil
		}); err != nil {
			t.Fatal(err)
		}
		if counter != 20 {
			t.Fatalf("round %d: counter = %d, want 20", round, counter)
		}
	}
}

func TestSetNThreadsGrowAndShrink(t *testing.T) {
	p := New(2)
	defer p.Destroy()

	p.SetNThreads(6)
	if got := p.NThreads(); got != 6 {
		t.Fatalf("NThreads() = %d, want 6", got)
	}
	p.SetNThreads(1)
	if got := p.NThreads(); got != 1 {
		t.Fatalf("NThreads() = %d, want 1", got)
	}

	var counter int64
	if err := p.Run(10, func(i int64) error {
		atomic.AddInt64(&counter, 1)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if counter != 10 {
		t.Fatalf("counter = %d, want 10", counter)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
