package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"orderexec/internal/api"
	"orderexec/internal/bus"
	"orderexec/internal/event"
	"orderexec/internal/fill"
	"orderexec/internal/obs"
	"orderexec/internal/ops"
	"orderexec/internal/order"
	"orderexec/internal/pricefeed"
	"orderexec/internal/store"
	"orderexec/pkg/conn"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to YAML or JSON config (empty = defaults + env)")
	flag.Parse()

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if loaded.Profiling.Enabled {
		profiler, err := startProfiler(loaded.Profiling)
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, loaded); err != nil {
		log.Fatalf("orderexec failed: %v", err)
	}
}

func run(ctx context.Context, loaded ops.Loaded) error {
	st, closeStore, err := openStore(ctx, loaded.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	metrics := obs.NewMetrics()
	listeners := []event.Listener{event.LogListener(), metrics}
	if path := loaded.Events.JournalPath; path != "" {
		journal, err := event.OpenJournal(path)
		if err != nil {
			return err
		}
		defer func() {
			if err := journal.Close(); err != nil {
				logs.Errorf("close journal, err: %+v", err)
			}
		}()
		listeners = append(listeners, journal)
	}

	queue := bus.NewQueue(loaded.Events.QueueSize)
	var consumer sync.WaitGroup
	consumer.Add(1)
	go func() {
		defer consumer.Done()
		// drains what is left after Close, so it must outlive ctx
		queue.Run(context.Background(), event.Dispatch(listeners...))
	}()
	defer func() {
		queue.Close()
		consumer.Wait()
		logs.Info("event queue drained")
	}()

	notifier := event.NewNotifier(queue)
	orders := order.NewUsecase(st, loaded.Rules, notifier, order.WithMetrics(metrics))

	feed, err := pricefeed.NewFeed(loaded.Prices.Default, loaded.Prices.BySymbol)
	if err != nil {
		return err
	}
	engine, err := fill.NewEngine(st, feed, loaded.Fill, notifier, fill.WithMetrics(metrics))
	if err != nil {
		return err
	}

	schedCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()
	var scheduler sync.WaitGroup
	if loaded.Simulator.Enabled {
		scheduler.Add(1)
		go func() {
			defer scheduler.Done()
			fill.NewScheduler(engine, loaded.Simulator.Tick, nil, metrics).Run(schedCtx)
		}()
	}

	server := &http.Server{
		Addr:              loaded.HTTP.Addr,
		Handler:           api.NewRouter(api.NewHandler(orders, metrics), loaded.HTTP.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logs.Infof("http server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case <-sys.Shutdown():
	case runErr = <-serveErr:
	}
	logs.Info("shutting down")

	stopScheduler()
	scheduler.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logs.Errorf("http shutdown, err: %+v", err)
	}

	snapshot := metrics.Snapshot()
	logs.Infof("metrics: created=%d replays=%d conflicts=%d fills=%d fill_conflicts=%d ticks=%d tick_errors=%d events=%v",
		snapshot.OrdersCreated, snapshot.IdempotentReplays, snapshot.IdempotencyConflicts,
		snapshot.Fills, snapshot.FillConflicts, snapshot.Ticks, snapshot.TickErrors, snapshot.EventCounts)
	return runErr
}

func openStore(ctx context.Context, spec ops.StoreSpec) (store.Store, func(), error) {
	if spec.Driver != ops.StorePostgres {
		logs.Info("using in-memory store")
		return store.NewMemoryStore(), func() {}, nil
	}

	client, err := conn.New(spec.Postgres)
	if err != nil {
		return nil, nil, err
	}
	closeClient := func() {
		if err := client.Close(); err != nil {
			logs.Errorf("close postgres, err: %+v", err)
		}
	}
	if err := client.Ping(ctx); err != nil {
		closeClient()
		return nil, nil, err
	}
	if spec.AutoMigrate {
		if err := store.Migrate(ctx, client.DB()); err != nil {
			closeClient()
			return nil, nil, err
		}
	}
	logs.Infof("using postgres store, host: %s, database: %s", spec.Postgres.Host, spec.Postgres.Database)
	return store.NewGormStore(client.DB()), closeClient, nil
}

func startProfiler(cfg ops.ProfilingConfig) (*pyroscope.Profiler, error) {
	return pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ApplicationName,
		ServerAddress:   cfg.ServerAddress,
		Tags: map[string]string{
			"service": "orderexec",
		},
		Logger: emptyLogger{},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
}

type emptyLogger struct{}

func (emptyLogger) Infof(string, ...interface{})  {}
func (emptyLogger) Debugf(string, ...interface{}) {}
func (emptyLogger) Errorf(string, ...interface{}) {}
