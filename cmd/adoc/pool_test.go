package main

import (
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"
)

func TestPrinterPool_AcquireRelease(t *testing.T) {
	t.Parallel()
	var created int
	pool := NewPrinterPool(2, func() Printer {
		created++
		return &fakePrinter{}
	})
	defer pool.Close()

	p1 := pool.Acquire()
	p2 := pool.Acquire()
	if p1 == p2 {
		t.Error("expected different printer instances")
	}
	pool.Release(p1)
	if p3 := pool.Acquire(); p3 != p1 {
		t.Error("expected to get back released printer")
	}
	if created != 2 {
		t.Errorf("created = %d, want 2", created)
	}
}

func TestPrinterPool_Lazy(t *testing.T) {
	t.Parallel()
	var created int
	pool := NewPrinterPool(4, func() Printer {
		created++
		return &fakePrinter{}
	})
	if err := pool.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if created != 0 {
		t.Errorf("created = %d, want 0", created)
	}
}

func TestPrinterPool_Size(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		size int
		want int
	}{
		{"size 1", 1, 1},
		{"size 4", 4, 4},
		{"size 0 becomes 1", 0, 1},
		{"negative becomes 1", -1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pool := NewPrinterPool(tt.size, func() Printer { return &fakePrinter{} })
			defer pool.Close()
			if got := pool.Size(); got != tt.want {
				t.Errorf("Size() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPrinterPool_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	pool := NewPrinterPool(3, func() Printer { return &fakePrinter{} })
	defer pool.Close()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := pool.Acquire()
			time.Sleep(time.Millisecond)
			pool.Release(p)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent access timed out, possible deadlock")
	}
}

func TestPrinterPool_Close(t *testing.T) {
	t.Parallel()

	t.Run("closes created printers", func(t *testing.T) {
		t.Parallel()
		fp := &fakePrinter{}
		pool := NewPrinterPool(1, func() Printer { return fp })
		p := pool.Acquire()
		pool.Release(p)
		if err := pool.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
		if !fp.closed {
			t.Error("printer not closed")
		}
		pool.Release(p)
		if err := pool.Close(); err != nil {
			t.Errorf("second Close() error = %v", err)
		}
	})

	t.Run("returns close error", func(t *testing.T) {
		t.Parallel()
		pool := NewPrinterPool(1, func() Printer { return &failingClosePrinter{} })
		pool.Acquire()
		if err := pool.Close(); !errors.Is(err, errFakeClose) {
			t.Errorf("Close() error = %v, want errFakeClose", err)
		}
	})
}

func TestResolvePoolSize(t *testing.T) {
	t.Parallel()
	if got := resolvePoolSize(5); got != 5 {
		t.Errorf("resolvePoolSize(5) = %d, want 5", got)
	}
	got := resolvePoolSize(0)
	if got < 1 || got > 8 {
		t.Errorf("resolvePoolSize(0) = %d, want between 1 and 8", got)
	}
	if want := min(max(runtime.GOMAXPROCS(0)/2, 1), 8); got != want {
		t.Errorf("resolvePoolSize(0) = %d, want %d", got, want)
	}
}
