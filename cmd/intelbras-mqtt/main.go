package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	logp "github.com/charmbracelet/log"
	client "github.com/matbott/addons-alarma-intelbras"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "intelbras-mqtt",
})

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	log.Info(
		"intelbras-mqtt",
		"version", version,
		"commit", commit,
		"date", date,
		"info", "MQTT bridge for Intelbras AMT alarm systems",
	)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal("could not parse env", "err", err.Error()+"\n")
	}
	if cfg.Debug {
		log.SetLevel(logp.DebugLevel)
		client.SetLogLevel(logp.DebugLevel)
	}

	log.Info(
		"loaded configuration",
		"panel", net.JoinHostPort(cfg.Host, cfg.Port),
		"broker", net.JoinHostPort(cfg.Broker, strconv.Itoa(cfg.BrokerPort)),
		"topics", cfg.TopicPrefix,
		"poll_interval", cfg.pollInterval(),
		"zones", cfg.Zones,
	)

	macAddr, err := client.MacAddress(cfg.Host)
	if err != nil {
		log.Warn(
			"could not get the mac address, needs 'cap_net_raw+ep' capabilities",
			"err", err,
		)
	} else {
		log.Info("found alarm system", "mac", macAddr)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	signal.Notify(c, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-c
		log.Info("stopping bridge")
		signal.Stop(c)
		cancel()
	}()

	metrics := serveMetrics(cfg.MetricsAddress)

	bridge := NewBridge(cfg, client.New(cfg.Host, cfg.Port, cfg.Timeout))
	if err := bridge.Run(ctx); err != nil {
		metrics.stop()
		log.Fatal("could not start bridge", "err", err)
	}
	metrics.stop()
	log.Info("bridge stopped")
}

type metricsServer struct {
	server *http.Server
}

// serveMetrics exposes prometheus metrics on addr. An empty addr disables it.
func serveMetrics(addr string) metricsServer {
	if addr == "" {
		return metricsServer{}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("serving metrics", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "err", err)
		}
	}()
	return metricsServer{server: server}
}

func (m metricsServer) stop() {
	if m.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.server.Shutdown(ctx); err != nil {
		log.Error("could not stop metrics server", "err", err)
	}
}
