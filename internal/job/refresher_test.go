package job

import (
	"context"
	"sync"
	"testing"
	"time"

	"card-ledger/internal/service"
)

type stubRefresher struct {
	mu    sync.Mutex
	calls int
}

func (s *stubRefresher) RefreshAll(ctx context.Context) (*service.RefreshSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return &service.RefreshSummary{}, nil
}

func (s *stubRefresher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestNewAssetRefresherInterval(t *testing.T) {
	r := NewAssetRefresher(&stubRefresher{}, 2)
	if r.pollInterval != 2*time.Second {
		t.Fatalf("expected 2s interval, got %v", r.pollInterval)
	}
}

func TestAssetRefresherRunsImmediately(t *testing.T) {
	t.Parallel()

	stub := &stubRefresher{}
	r := NewAssetRefresher(stub, 60)

	ctx, cancel := context.WithCancel(context.Background())
	go r.Start(ctx)

	eventually(t, func() bool { return stub.callCount() > 0 })
	cancel()
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}
