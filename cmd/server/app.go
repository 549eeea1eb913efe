package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/design-orders-backend/internal/clock"
	"github.com/ignatzorin/design-orders-backend/internal/config"
	"github.com/ignatzorin/design-orders-backend/internal/db"
	"github.com/ignatzorin/design-orders-backend/internal/events"
	"github.com/ignatzorin/design-orders-backend/internal/goroutine"
	"github.com/ignatzorin/design-orders-backend/internal/infrastructure/persistence"
	"github.com/ignatzorin/design-orders-backend/internal/logger"
	"github.com/ignatzorin/design-orders-backend/internal/repository"
	"github.com/ignatzorin/design-orders-backend/internal/repository/common"
	"github.com/ignatzorin/design-orders-backend/internal/service"
	"github.com/ignatzorin/design-orders-backend/internal/usecase/designorder"
	"github.com/ignatzorin/design-orders-backend/internal/usecase/escrow"
	"github.com/ignatzorin/design-orders-backend/internal/ws"
)

const notifyTimeout = 5 * time.Second

// app хранит собранные зависимости, общие для команд serve и sweep.
type app struct {
	cfg  *config.Config
	log  *logrus.Logger
	conn *sqlx.DB

	hub           *ws.Hub
	publisher     *events.Publisher
	payments      *service.PaymentService
	notifications *service.NotificationService
	deliverables  *persistence.DeliverableRepositoryAdapter
	deps          designorder.Deps
}

// bootstrap читает конфигурацию и поднимает логгер.
func bootstrap() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("main: ошибка загрузки конфигурации: %w", err)
	}

	log := logger.Init(cfg.LogLevel, cfg.Env)
	goroutine.SetLogger(log)
	return cfg, log, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, log, err := bootstrap()
	if err != nil {
		return nil, err
	}

	conn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("main: ошибка подключения к базе: %w", err)
	}

	hold, err := config.LoadHoldPolicy(cfg.Escrow.PolicyPath, cfg.Escrow.HoldPeriod)
	if err != nil {
		conn.Close()
		return nil, err
	}

	a := &app{cfg: cfg, log: log, conn: conn, hub: ws.NewHub(log)}
	clk := clock.NewSystem()

	// Репозитории. Платежи и заказы ставят время по одним часам.
	paymentRepo := repository.NewPaymentRepository(conn, clk)
	notificationRepo := repository.NewNotificationRepository(conn)
	a.deliverables = persistence.NewDeliverableRepositoryAdapter(conn)

	// Сервисы. Publisher может быть nil, тогда Kafka не используется.
	a.payments = service.NewPaymentService(paymentRepo)
	var publisher service.EventPublisher
	if a.publisher = events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log); a.publisher != nil {
		publisher = a.publisher
	}
	a.notifications = service.NewNotificationService(notificationRepo, a.hub, publisher, log)

	a.deps = designorder.Deps{
		Orders:                persistence.NewDesignOrderRepositoryAdapter(conn),
		History:               persistence.NewHistoryRepositoryAdapter(conn),
		Tx:                    common.NewTransactor(conn),
		Payments:              a.payments,
		Notifier:              a.notifications,
		Hold:                  hold,
		Clock:                 clk,
		Log:                   log,
		DefaultDeliveryWindow: cfg.DefaultDeliveryWindow,
		NotifyTimeout:         notifyTimeout,
	}

	log.WithFields(logrus.Fields{
		"env":          cfg.Env,
		"hold_default": hold.Default,
		"hold_tiers":   len(hold.Tiers),
		"kafka":        a.publisher != nil,
	}).Info("main: зависимости собраны")

	return a, nil
}

func (a *app) sweeper() *escrow.Sweeper {
	return escrow.NewSweeper(
		a.deps.Orders,
		designorder.NewMatureEscrowUseCase(a.deps),
		a.deps.Clock,
		escrow.Config{
			Interval: a.cfg.Escrow.SweepInterval,
			Batch:    a.cfg.Escrow.SweepBatch,
			Workers:  a.cfg.Escrow.SweepWorkers,
		},
		a.log,
	)
}

func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.WithError(err).Warn("main: ошибка закрытия kafka writer")
		}
	}
	if err := a.conn.Close(); err != nil {
		a.log.WithError(err).Warn("main: ошибка закрытия базы")
	}
}
