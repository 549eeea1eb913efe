package escrow

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/design-orders-backend/internal/clock"
	"github.com/ignatzorin/design-orders-backend/internal/domain/entity"
	"github.com/ignatzorin/design-orders-backend/internal/domain/repository"
	"github.com/ignatzorin/design-orders-backend/internal/metrics"
)

// Maturer завершает один заказ; должен быть идемпотентным.
type Maturer interface {
	Execute(ctx context.Context, orderID uuid.UUID) (*entity.DesignOrder, error)
}

type Config struct {
	Interval time.Duration
	Batch    int
	Workers  int
}

// Result описывает итог одного прохода.
type Result struct {
	Found    int
	Released int
	Failed   int
}

// Sweeper периодически ищет принятые заказы с истёкшим удержанием и выплачивает по ним.
// Удержание хранится только в данных (escrow_release_at), поэтому проход можно
// запускать параллельно с другим экземпляром или повторять после падения.
type Sweeper struct {
	orders repository.DesignOrderRepository
	mature Maturer
	clock  clock.Clock
	cfg    Config
	log    *logrus.Logger
}

func NewSweeper(orders repository.DesignOrderRepository, mature Maturer, clk clock.Clock, cfg Config, log *logrus.Logger) *Sweeper {
	if cfg.Batch <= 0 {
		cfg.Batch = 100
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Minute
	}
	return &Sweeper{orders: orders, mature: mature, clock: clk, cfg: cfg, log: log}
}

// Run выполняет проход сразу и затем по таймеру, пока не отменён ctx.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.WithFields(logrus.Fields{
		"interval": s.cfg.Interval,
		"batch":    s.cfg.Batch,
		"workers":  s.cfg.Workers,
	}).Info("escrow sweep запущен")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.WithError(err).Error("escrow sweep: проход не выполнен")
		}

		select {
		case <-ctx.Done():
			s.log.Info("escrow sweep остановлен")
			return nil
		case <-ticker.C:
		}
	}
}

// SweepOnce обрабатывает одну пачку заказов. Ошибка по отдельному заказу не прерывает
// проход: заказ останется accepted и попадёт в следующую выборку.
func (s *Sweeper) SweepOnce(ctx context.Context) (Result, error) {
	started := time.Now()
	defer func() {
		metrics.EscrowSweepDuration.Observe(time.Since(started).Seconds())
	}()

	due, err := s.orders.FindMaturedEscrow(ctx, s.clock.Now(), s.cfg.Batch)
	if err != nil {
		return Result{}, err
	}
	if len(due) == 0 {
		return Result{}, nil
	}

	var released, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)

	for _, order := range due {
		orderID := order.ID
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if _, err := s.mature.Execute(ctx, orderID); err != nil {
				failed.Add(1)
				s.log.WithError(err).WithField("order_id", orderID).Warn("escrow sweep: выплата не выполнена, повтор на следующем проходе")
				return nil
			}
			released.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Found: len(due), Released: int(released.Load()), Failed: int(failed.Load())}
	s.log.WithFields(logrus.Fields{
		"found":    res.Found,
		"released": res.Released,
		"failed":   res.Failed,
	}).Info("escrow sweep: проход завершён")
	return res, nil
}
