package designorder_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/design-orders-backend/internal/clock"
	"github.com/ignatzorin/design-orders-backend/internal/domain/entity"
	"github.com/ignatzorin/design-orders-backend/internal/domain/repository"
	"github.com/ignatzorin/design-orders-backend/internal/pkg/apperror"
	"github.com/ignatzorin/design-orders-backend/internal/usecase/designorder"
)

// memStore хранит заказы и историю в памяти, проверяет версию при Update
// и откатывает изменения, если функция внутри WithTx вернула ошибку.
type memStore struct {
	mu      sync.Mutex
	txMu    sync.Mutex
	orders  map[uuid.UUID]entity.DesignOrder
	history []entity.HistoryEntry
	barrier *barrier
}

func newMemStore() *memStore {
	return &memStore{orders: make(map[uuid.UUID]entity.DesignOrder)}
}

func (s *memStore) Create(ctx context.Context, o *entity.DesignOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = *o
	return nil
}

func (s *memStore) Update(ctx context.Context, o *entity.DesignOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.orders[o.ID]
	if !ok {
		return apperror.ErrOrderNotFound
	}
	if current.Version != o.Version {
		return apperror.ErrConcurrentModified
	}
	o.Version++
	s.orders[o.ID] = *o
	return nil
}

func (s *memStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.DesignOrder, error) {
	s.mu.Lock()
	o, ok := s.orders[id]
	b := s.barrier
	s.mu.Unlock()

	if !ok {
		return nil, apperror.ErrOrderNotFound
	}
	if b != nil {
		b.arrive()
	}
	return &o, nil
}

func (s *memStore) List(ctx context.Context, filter repository.DesignOrderFilter) ([]*entity.DesignOrder, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*entity.DesignOrder
	for _, o := range s.orders {
		if filter.BuyerID != nil && o.BuyerID != *filter.BuyerID {
			continue
		}
		if filter.SellerID != nil && o.SellerID != *filter.SellerID {
			continue
		}
		if filter.Status != "" && string(o.Status) != filter.Status {
			continue
		}
		o := o
		result = append(result, &o)
	}
	return result, len(result), nil
}

func (s *memStore) FindMaturedEscrow(ctx context.Context, now time.Time, limit int) ([]*entity.DesignOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*entity.DesignOrder
	for _, o := range s.orders {
		if entity.IsEscrowMatured(&o, now) && len(result) < limit {
			o := o
			result = append(result, &o)
		}
	}
	return result, nil
}

func (s *memStore) Append(ctx context.Context, e entity.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, e)
	return nil
}

func (s *memStore) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]entity.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []entity.HistoryEntry
	for _, e := range s.history {
		if e.OrderID == orderID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := make(map[uuid.UUID]entity.DesignOrder, len(s.orders))
	for id, o := range s.orders {
		snapshot[id] = o
	}
	historyLen := len(s.history)
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.orders = snapshot
		s.history = s.history[:historyLen]
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) get(id uuid.UUID) entity.DesignOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id]
}

func (s *memStore) historyActions(id uuid.UUID) []entity.Action {
	entries, _ := s.ListByOrder(context.Background(), id)
	actions := make([]entity.Action, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}

// barrier задерживает первые n чтений, пока все n не прочитают одну и ту же версию.
type barrier struct {
	mu sync.Mutex
	n  int
	ch chan struct{}
}

func newBarrier(n int) *barrier {
	return &barrier{n: n, ch: make(chan struct{})}
}

func (b *barrier) arrive() {
	b.mu.Lock()
	b.n--
	if b.n == 0 {
		close(b.ch)
	}
	b.mu.Unlock()
	<-b.ch
}

type fakeLedger struct {
	mu           sync.Mutex
	held         map[uuid.UUID]int
	released     map[uuid.UUID]int
	refunded     map[uuid.UUID]int
	releaseCalls int
	holdErr      error
	releaseErr   error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		held:     map[uuid.UUID]int{},
		released: map[uuid.UUID]int{},
		refunded: map[uuid.UUID]int{},
	}
}

func (l *fakeLedger) HoldForOrder(ctx context.Context, o *entity.DesignOrder) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.holdErr != nil {
		return l.holdErr
	}
	l.held[o.ID]++
	return nil
}

func (l *fakeLedger) ReleaseForOrder(ctx context.Context, o *entity.DesignOrder) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.releaseCalls++
	if l.releaseErr != nil {
		return l.releaseErr
	}
	l.released[o.ID]++
	return nil
}

func (l *fakeLedger) RefundForOrder(ctx context.Context, o *entity.DesignOrder) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refunded[o.ID]++
	return nil
}

func (l *fakeLedger) releasedCount(id uuid.UUID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.released[id]
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []entity.OrderEvent
	err    error
}

func (n *fakeNotifier) Notify(ctx context.Context, ev entity.OrderEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *fakeNotifier) types() []entity.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]entity.EventType, 0, len(n.events))
	for _, ev := range n.events {
		types = append(types, ev.Type)
	}
	return types
}

var errGateway = errors.New("gateway timeout")

type tierHold map[string]time.Duration

func (h tierHold) HoldPeriod(tier string) time.Duration {
	if d, ok := h[tier]; ok {
		return d
	}
	return 72 * time.Hour
}

type env struct {
	store    *memStore
	ledger   *fakeLedger
	notifier *fakeNotifier
	files    *memFiles
	clock    *clock.Manual
	deps     designorder.Deps
	buyer    uuid.UUID
	seller   uuid.UUID
}

var t0 = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newEnv() *env {
	store := newMemStore()
	ledger := newFakeLedger()
	notifier := &fakeNotifier{}
	clk := clock.NewManual(t0)

	log := logrus.New()
	log.SetOutput(io.Discard)

	return &env{
		store:    store,
		ledger:   ledger,
		notifier: notifier,
		files:    &memFiles{},
		clock:    clk,
		buyer:    uuid.New(),
		seller:   uuid.New(),
		deps: designorder.Deps{
			Orders:                store,
			History:               store,
			Tx:                    store,
			Payments:              ledger,
			Notifier:              notifier,
			Hold:                  designorder.FixedHold(72 * time.Hour),
			Clock:                 clk,
			Log:                   log,
			DefaultDeliveryWindow: 72 * time.Hour,
		},
	}
}

func emptyFilter() repository.DesignOrderFilter {
	return repository.DesignOrderFilter{}
}
