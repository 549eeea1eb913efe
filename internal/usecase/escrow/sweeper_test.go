package escrow

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/design-orders-backend/internal/clock"
	"github.com/ignatzorin/design-orders-backend/internal/domain/entity"
	"github.com/ignatzorin/design-orders-backend/internal/domain/repository"
	"github.com/ignatzorin/design-orders-backend/internal/domain/valueobject"
)

type dueRepo struct {
	repository.DesignOrderRepository

	mu     sync.Mutex
	orders []*entity.DesignOrder
	limits []int
	err    error
}

func (r *dueRepo) FindMaturedEscrow(ctx context.Context, now time.Time, limit int) ([]*entity.DesignOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limits = append(r.limits, limit)
	if r.err != nil {
		return nil, r.err
	}
	var due []*entity.DesignOrder
	for _, o := range r.orders {
		if entity.IsEscrowMatured(o, now) && len(due) < limit {
			due = append(due, o)
		}
	}
	return due, nil
}

type fakeMaturer struct {
	mu    sync.Mutex
	calls map[uuid.UUID]int
	fail  map[uuid.UUID]bool
}

func (m *fakeMaturer) Execute(ctx context.Context, orderID uuid.UUID) (*entity.DesignOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[orderID]++
	if m.fail[orderID] {
		return nil, errors.New("payment gateway unavailable")
	}
	return &entity.DesignOrder{ID: orderID, Status: valueobject.OrderStatusCompleted}, nil
}

func acceptedOrder(releaseAt time.Time) *entity.DesignOrder {
	return &entity.DesignOrder{
		ID:              uuid.New(),
		Status:          valueobject.OrderStatusAccepted,
		EscrowReleaseAt: &releaseAt,
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestSweepOnce_ReleasesOnlyMatured(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	matured := acceptedOrder(now.Add(-time.Minute))
	boundary := acceptedOrder(now)
	early := acceptedOrder(now.Add(time.Minute))

	repo := &dueRepo{orders: []*entity.DesignOrder{matured, boundary, early}}
	maturer := &fakeMaturer{calls: map[uuid.UUID]int{}, fail: map[uuid.UUID]bool{}}
	s := NewSweeper(repo, maturer, clock.NewManual(now), Config{Batch: 10, Workers: 3}, quietLogger())

	res, err := s.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Found: 2, Released: 2}, res)
	assert.Equal(t, 1, maturer.calls[matured.ID])
	assert.Equal(t, 1, maturer.calls[boundary.ID])
	assert.Zero(t, maturer.calls[early.ID])
}

func TestSweepOnce_FailureDoesNotStopBatch(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	a := acceptedOrder(now.Add(-time.Hour))
	b := acceptedOrder(now.Add(-time.Hour))

	repo := &dueRepo{orders: []*entity.DesignOrder{a, b}}
	maturer := &fakeMaturer{calls: map[uuid.UUID]int{}, fail: map[uuid.UUID]bool{a.ID: true}}
	s := NewSweeper(repo, maturer, clock.NewManual(now), Config{Batch: 10, Workers: 1}, quietLogger())

	res, err := s.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Found: 2, Released: 1, Failed: 1}, res)
	assert.Equal(t, 1, maturer.calls[b.ID])
}

func TestSweepOnce_RespectsBatch(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	repo := &dueRepo{}
	for i := 0; i < 5; i++ {
		repo.orders = append(repo.orders, acceptedOrder(now.Add(-time.Hour)))
	}
	maturer := &fakeMaturer{calls: map[uuid.UUID]int{}, fail: map[uuid.UUID]bool{}}
	s := NewSweeper(repo, maturer, clock.NewManual(now), Config{Batch: 2, Workers: 2}, quietLogger())

	res, err := s.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Found)
	assert.Equal(t, []int{2}, repo.limits)
}

func TestSweepOnce_RepositoryError(t *testing.T) {
	repo := &dueRepo{err: errors.New("db down")}
	maturer := &fakeMaturer{calls: map[uuid.UUID]int{}}
	s := NewSweeper(repo, maturer, clock.NewSystem(), Config{}, quietLogger())

	_, err := s.SweepOnce(context.Background())
	assert.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	repo := &dueRepo{}
	maturer := &fakeMaturer{calls: map[uuid.UUID]int{}}
	s := NewSweeper(repo, maturer, clock.NewSystem(), Config{Interval: 10 * time.Millisecond}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return len(repo.limits) >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
