package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	relay "github.com/zing-dev/relay-serial-sdk"
	"github.com/zing-dev/relay-serial-sdk/internal/config"
	"github.com/zing-dev/relay-serial-sdk/internal/logging"
)

var (
	configPath = flag.String("config", "", "config file (default relay.yaml, or $RELAY_CONFIG)")
	address    = flag.String("port", "", "serial port, overrides serial.address")
	wait       = flag.Duration("wait", 2*time.Second, "time to wait for status frames before exiting, 0 waits for a signal")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("config: ", err)
	}
	if *address != "" {
		cfg.Serial.Address = *address
	}
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		log.Fatal("logger: ", err)
	}
	defer func() { _ = logger.Sync() }()

	var metrics *relay.Metrics
	if cfg.Metrics.Enable {
		reg := prometheus.NewRegistry()
		metrics = relay.NewMetrics(reg)
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", zap.Error(err))
			}
		}()
		defer srv.Close()
		logger.Info("metrics server started", zap.String("addr", cfg.Metrics.Addr))
	}

	handle := relay.NewClientHandler(cfg.Serial.Address)
	handle.SlaveId = cfg.Device.SlaveId
	handle.BaudRate = cfg.Serial.BaudRate
	handle.DataBits = cfg.Serial.DataBits
	handle.StopBits = cfg.Serial.StopBits
	handle.Parity = cfg.Serial.Parity
	handle.Timeout = cfg.Serial.Timeout
	handle.Logger = logger

	client := relay.NewClient(handle,
		relay.WithLogger(logger),
		relay.WithMetrics(metrics),
		relay.WithStatusHandler(func(v relay.StateVector) {
			logger.Info("relay status", zap.Stringer("state", v))
		}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.Open(ctx); err != nil {
		logger.Error("open failed", zap.String("port", cfg.Serial.Address), zap.Error(err))
		_ = client.Close()
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("close failed", zap.Error(err))
		}
	}()

	for i := 0; i < relay.RelayCount; i++ {
		if err := client.Pulse(i); err != nil {
			logger.Error("pulse failed", zap.Int("relay", i), zap.Error(err))
		}
	}

	if *wait > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(*wait):
		}
	} else {
		<-ctx.Done()
	}
}
