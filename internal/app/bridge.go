// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/motion_bridge/internal/config"
	"github.com/relabs-tech/motion_bridge/internal/metrics"
	"github.com/relabs-tech/motion_bridge/internal/stream"
	"github.com/relabs-tech/motion_bridge/internal/transport"
)

// RunBridge serves sensor streams over MQTT and websockets until SIGINT or
// SIGTERM, then tears every stream down.
func RunBridge() error {
	cfg := config.Get()

	b := newBoard(cfg)
	defer b.Close()

	client, err := transport.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDBridge)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	sinks := []stream.Sink{transport.NewMQTTSink(client, cfg.TopicSensorPrefix)}
	if cfg.KafkaEnabled() {
		k := transport.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer k.Close()
		sinks = append(sinks, k)
		log.Printf("bridge: mirroring samples to kafka topic %s", cfg.KafkaTopic)
	}
	out := stream.Tee(sinks...)

	collector := metrics.New(prometheus.NewRegistry())

	// Registered after the sinks so it is closed before them.
	registry := stream.NewRegistry(b, stream.WithObserver(collector.Scope(metrics.ScopeBridge)))
	defer registry.Close()

	commands := transport.NewCommandBridge(client, cfg.TopicCommand, registry, out)
	commands.SetDefaultInterval(cfg.DefaultInterval)
	if err := commands.Start(); err != nil {
		return err
	}
	defer commands.Stop()

	for _, a := range cfg.Autostart {
		interval := cfg.IntervalFor(a)
		registry.Listen(a.SensorID, interval, out)
		log.Printf("bridge: autostart %s interval=%d state=%s", a.SensorID, interval, registry.State(a.SensorID))
	}

	ws := transport.NewWSHandler(b, cfg.SampleBuffer)
	ws.SetObserver(collector.Scope)
	ws.SetDefaultInterval(cfg.DefaultInterval)
	// Hijacked connections outlive srv.Shutdown; their streams must be gone
	// before the board closes.
	defer ws.Close()
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           newRouter(b, registry, ws, collector.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("bridge: web server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Println("bridge: shutting down")
	case err := <-errCh:
		return fmt.Errorf("bridge: web server: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warnf("bridge: web server shutdown: %v", err)
	}
	return nil
}
