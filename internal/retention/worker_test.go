package retention

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeSweeper struct {
	mu      sync.Mutex
	errs    []error
	calls   int
	cutoffs []time.Time
}

func (f *fakeSweeper) DeleteSessionsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.cutoffs = append(f.cutoffs, cutoff)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return 0, err
	}
	return 2, nil
}

func TestSweepRetriesBusyDatabase(t *testing.T) {
	f := &fakeSweeper{errs: []error{errors.New("database is locked (5) (SQLITE_BUSY)")}}
	cutoff := time.Now().Add(-time.Hour)

	n, err := Sweep(context.Background(), f, cutoff)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if n != 2 || f.calls != 2 {
		t.Fatalf("expected a retry then success, got n=%d calls=%d", n, f.calls)
	}
	if !f.cutoffs[1].Equal(cutoff) {
		t.Errorf("cutoff changed between attempts: %v", f.cutoffs)
	}
}

func TestSweepStopsOnOtherErrors(t *testing.T) {
	f := &fakeSweeper{errs: []error{errors.New("disk I/O error")}}

	if _, err := Sweep(context.Background(), f, time.Now()); err == nil {
		t.Fatal("expected error")
	}
	if f.calls != 1 {
		t.Fatalf("non-conflict errors must not be retried, got %d calls", f.calls)
	}
}

func TestStartSweepsUntilCancelled(t *testing.T) {
	f := &fakeSweeper{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	Start(ctx, f, time.Hour, 10*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		calls := f.calls
		f.mu.Unlock()
		if calls > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("worker never swept")
}

func TestStartDisabled(t *testing.T) {
	f := &fakeSweeper{}
	Start(context.Background(), f, 0, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls != 0 {
		t.Fatalf("disabled worker swept %d times", f.calls)
	}
}
