package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smokinadvd/crypto-portfolios/internal/domain"
	"github.com/smokinadvd/crypto-portfolios/internal/registry"
)

type mockRegistry struct {
	live []*domain.Portfolio
}

func (m *mockRegistry) Save(_ context.Context, _ *domain.Portfolio) error { return nil }
func (m *mockRegistry) Get(_ context.Context, _ string) (*domain.Portfolio, error) {
	return nil, registry.ErrNotFound
}
func (m *mockRegistry) ListLive(_ context.Context) ([]*domain.Portfolio, error) {
	return m.live, nil
}
func (m *mockRegistry) List(_ context.Context) ([]*domain.Portfolio, error) { return m.live, nil }
func (m *mockRegistry) Count(_ context.Context) (int, error)                { return len(m.live), nil }

type mockAdvancer struct {
	calls  atomic.Int32
	failID string
}

func (m *mockAdvancer) Advance(_ context.Context, p *domain.Portfolio, _ time.Time) (int, error) {
	m.calls.Add(1)
	if p.ID() == m.failID {
		return 0, errors.New("provider down")
	}
	return 1, nil
}

func TestSnapshotWorkerRunsAndShutdown(t *testing.T) {
	reg := &mockRegistry{live: []*domain.Portfolio{
		{CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}}
	adv := &mockAdvancer{}
	w := NewSnapshotWorker(reg, adv, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if got := adv.calls.Load(); got < 1 {
		t.Errorf("advance calls = %d, want >= 1", got)
	}
}

func TestSnapshotWorkerFailureDoesNotStopSiblings(t *testing.T) {
	reg := &mockRegistry{live: []*domain.Portfolio{
		{CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
	}}
	adv := &mockAdvancer{failID: "2026-02-01"}
	w := NewSnapshotWorker(reg, adv, time.Hour)

	w.pollOnce(context.Background())

	if got := adv.calls.Load(); got != 3 {
		t.Errorf("advance calls = %d, want 3: one failure must not abort siblings", got)
	}
}

type mockCreator struct {
	calls atomic.Int32
	err   error
}

func (m *mockCreator) CreateCycle(_ context.Context) (*domain.Portfolio, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Portfolio{CreatedAt: time.Now().UTC()}, nil
}

func TestCreationWorkerRunsAndShutdown(t *testing.T) {
	creator := &mockCreator{}
	w := NewCreationWorker(creator, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if got := creator.calls.Load(); got < 1 {
		t.Errorf("create calls = %d, want >= 1", got)
	}
}

func TestCreationWorkerToleratesSkips(t *testing.T) {
	creator := &mockCreator{err: errors.New("insufficient candidates: 40 of 100 required")}
	w := NewCreationWorker(creator, time.Hour)

	// must not panic or abort on a skip condition
	w.createOnce(context.Background())

	if got := creator.calls.Load(); got != 1 {
		t.Errorf("create calls = %d, want 1", got)
	}
}
