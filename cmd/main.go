package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"controlling_relay/internal/config"
	"controlling_relay/internal/handlers"
	"controlling_relay/internal/logger"
	"controlling_relay/internal/mqtt"
	"controlling_relay/internal/notify"
	"controlling_relay/internal/protocol"
	"controlling_relay/internal/repository"
	"controlling_relay/internal/repository/db"
	"controlling_relay/internal/server"
	"controlling_relay/internal/service"
	"controlling_relay/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load("configs", ".")
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(cfg.LogLevel)

	conn, err := openDB(cfg.DBPath, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()
	repos := repository.NewRepository(conn)

	// Relay core: transport -> adapter -> relay, with notifications on the bus.
	bus := notify.NewBus(0, log.Named("notify"))
	link := newTransport(cfg.Relay, log)
	adapter := protocol.NewAdapter(link, bus, log.Named("protocol"), protocol.Options{
		PollInterval: cfg.Relay.PollInterval,
		SendTimeout:  cfg.Relay.SendTimeout,
		Debug:        cfg.Relay.Debug,
	})
	relay := service.NewRelayService(adapter, bus, log.Named("relay"), service.RelayOptions{
		AutoOff:     cfg.Relay.AutoOff,
		AutoOffTime: cfg.Relay.AutoOffTime,
	})
	adapter.Attach(relay)
	defer adapter.Detach()

	dispatcher := service.NewDispatcher(relay, log.Named("dispatcher"), service.DispatcherOptions{
		Workers:   cfg.Dispatcher.Workers,
		QueueSize: cfg.Dispatcher.Queue,
	})
	presenter := service.NewPresenter(cfg.Relay.OnIcon, cfg.Relay.OffIcon)

	// Sinks.
	journal := service.NewJournal(repos.EventRepo, repos.StateRepo, log.Named("journal"))
	journal.LogPrevious(context.Background())
	journal.Seed(relay.Snapshot())
	bus.Register(journal)

	hub := handlers.NewHub(log.Named("ws"))
	bus.Register(hub)

	if cfg.MQTT.Enabled() {
		bridge, err := mqtt.Connect(mqtt.Options{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		}, dispatcher, log.Named("mqtt"))
		if err != nil {
			log.Errorw("mqtt_bridge_disabled", "broker", cfg.MQTT.Broker, "err", err)
		} else {
			bus.Register(bridge)
			defer bridge.Close()
		}
	}

	services := service.NewService(repos, service.Deps{
		Relay:      relay,
		Connection: adapter,
		Presenter:  presenter,
		Dispatcher: dispatcher,
		SigningKey: cfg.SigningKey,
	})
	apiHandler := handlers.NewHandler(services, hub, log.Named("http"))

	// The bus outlives the workers so their last notifications are delivered.
	busCtx, stopBus := context.WithCancel(context.Background())
	busDone := make(chan struct{})
	go func() {
		bus.Run(busCtx)
		close(busDone)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	runWorker(&workers, func() { link.Run(ctx, adapter) })
	runWorker(&workers, func() { adapter.Run(ctx) })
	runWorker(&workers, func() { dispatcher.Run(ctx) })

	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)
	log.Infow("relay_controller_started",
		"port", cfg.Port,
		"transport", cfg.Relay.Transport,
		"auto_off", cfg.Relay.AutoOff,
		"auto_off_time", cfg.Relay.AutoOffTime,
		"mqtt", cfg.MQTT.Enabled(),
	)

	waitForShutdown(srv, log)

	cancel()
	workers.Wait()
	stopBus()
	<-busDone
	log.Infow("relay_controller_stopped")
}

// openDB initializes the SQLite database.
func openDB(path string, log *logger.Logger) (*sql.DB, error) {
	if path == "" {
		log.Infow("db.path not set in config; using default file", "default", "app.db")
		path = "app.db"
	}
	return db.InitDB(path)
}

func newTransport(rc config.RelayConfig, log *logger.Logger) transport.Transport {
	if rc.Transport == config.TransportSerial {
		return transport.NewSerialPort(rc.SerialPort, rc.Baud, log.Named("serial"))
	}
	return transport.NewTCPClient(rc.Addr(), log.Named("tcp"))
}

func runWorker(wg *sync.WaitGroup, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn()
	}()
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown blocks until SIGINT/SIGTERM, then stops the HTTP server.
func waitForShutdown(srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
