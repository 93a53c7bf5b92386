package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/duongvyyyx/anti-traffic-jam/module/core/internal/geoindex"
	handler "github.com/duongvyyyx/anti-traffic-jam/module/core/internal/handler/http"
	"github.com/duongvyyyx/anti-traffic-jam/module/core/internal/handler/subscriber"
	"github.com/duongvyyyx/anti-traffic-jam/module/core/internal/hub"
	"github.com/duongvyyyx/anti-traffic-jam/module/core/internal/metrics"
	"github.com/duongvyyyx/anti-traffic-jam/module/core/internal/repository/database"
	"github.com/duongvyyyx/anti-traffic-jam/module/core/internal/repository/database/postgres"
	"github.com/duongvyyyx/anti-traffic-jam/module/core/internal/repository/publisher"
	"github.com/duongvyyyx/anti-traffic-jam/module/core/internal/repository/publisher/rabbitmq"
	"github.com/duongvyyyx/anti-traffic-jam/module/core/internal/store"
	"github.com/duongvyyyx/anti-traffic-jam/module/core/service"
)

type Options struct {
	EventTTL         time.Duration
	SweepInterval    time.Duration
	MaxListEvents    int
	SubscriberBuffer int
	Verifier         handler.IdentityVerifier
}

type Module struct {
	ReportSvc *service.ReportService
	QuerySvc  *service.QueryService

	handler       *handler.EventHandler
	subscriber    *subscriber.ReportSubscriber
	verifier      handler.IdentityVerifier
	sweepInterval time.Duration
}

// Build wires the module. db, amqpConn and mqttClient may each be nil: the
// engine is in-memory and the archive, external fan-out and MQTT ingest are
// optional attachments.
func Build(db *sql.DB, amqpConn *amqp.Connection, mqttClient mqtt.Client, opts Options) (*Module, error) {
	st := store.New(opts.EventTTL, opts.MaxListEvents)
	idx := geoindex.NewGrid()
	h := hub.New(opts.SubscriberBuffer)

	var archive database.EventArchive
	if db != nil {
		archive = postgres.NewEventRepo(db)
	}

	var pub publisher.EventPublisher
	if amqpConn != nil {
		p, err := rabbitmq.NewEventPublisher(amqpConn)
		if err != nil {
			return nil, fmt.Errorf("event publisher: %w", err)
		}
		pub = p
	}

	reportSvc := service.NewReportService(st, idx, h, archive, pub)
	querySvc := service.NewQueryService(st, idx, h)

	metrics.Register(st.Len, h.Subscribers, h.Drops)

	verifier := opts.Verifier
	if verifier == nil {
		verifier = handler.OpaqueVerifier{}
	}

	m := &Module{
		ReportSvc:     reportSvc,
		QuerySvc:      querySvc,
		handler:       handler.NewEventHandler(reportSvc, querySvc),
		verifier:      verifier,
		sweepInterval: opts.SweepInterval,
	}
	if mqttClient != nil {
		m.subscriber = subscriber.NewReportSubscriber(mqttClient, reportSvc)
	}
	return m, nil
}

func (m *Module) RegisterRoutes(r *gin.Engine) {
	group := r.Group("", handler.RequireIdentity(m.verifier))
	m.handler.Register(group)
}

func (m *Module) StartSubscribers() error {
	if m.subscriber == nil {
		return nil
	}
	return m.subscriber.Start()
}

// StartSweeper launches the periodic expiry sweep until ctx is cancelled.
func (m *Module) StartSweeper(ctx context.Context) {
	go m.ReportSvc.RunSweeper(ctx, m.sweepInterval)
}

// Restore replays archived events from within the event horizon. No-op
// without an archive.
func (m *Module) Restore(ctx context.Context) (int, error) {
	return m.ReportSvc.Restore(ctx)
}
