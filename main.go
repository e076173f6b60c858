package main

import (
	"bufio"
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	apihttp "fleet-hub/internal/api/http"
	"fleet-hub/internal/fleet/application"
	mqttingest "fleet-hub/internal/ingest/mqtt"
	"fleet-hub/internal/observability/metrics"
	"fleet-hub/internal/realtime"
	"fleet-hub/internal/realtime/ws"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	metrics.Init()

	hub := realtime.NewHub(logger)
	dispatcher, err := application.NewDispatcher(hub, logger)
	if err != nil {
		logger.Fatalf("dispatcher error: %v", err)
	}

	eventsHandler, err := apihttp.NewEventsHandler(dispatcher, logger)
	if err != nil {
		logger.Fatalf("events handler error: %v", err)
	}
	stateHandler, err := apihttp.NewStateHandler(dispatcher)
	if err != nil {
		logger.Fatalf("state handler error: %v", err)
	}
	devicesHandler, err := apihttp.NewDevicesHandler(dispatcher)
	if err != nil {
		logger.Fatalf("devices handler error: %v", err)
	}
	modelsHandler, err := apihttp.NewModelsHandler(dispatcher)
	if err != nil {
		logger.Fatalf("models handler error: %v", err)
	}
	sessionsHandler, err := apihttp.NewSessionsHandler(dispatcher)
	if err != nil {
		logger.Fatalf("sessions handler error: %v", err)
	}
	wsHandler, err := ws.NewHandler(hub, logger)
	if err != nil {
		logger.Fatalf("ws handler error: %v", err)
	}

	if cfg.MQTTBroker != "" {
		client, err := mqttingest.NewClient(mqttingest.ClientConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		}, logger)
		if err != nil {
			logger.Fatalf("mqtt connect error: %v", err)
		}
		defer client.Close()

		subscriber, err := mqttingest.NewSubscriber(client.NativeClient(), dispatcher, mqttingest.SubscriberConfig{
			DeviceTopic:  cfg.MQTTDeviceTopic,
			SessionTopic: cfg.MQTTSessionTopic,
		}, logger)
		if err != nil {
			logger.Fatalf("mqtt subscriber error: %v", err)
		}
		if err := subscriber.SubscribeAll(); err != nil {
			logger.Fatalf("mqtt subscribe error: %v", err)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/events", eventsHandler)
	mux.Handle("/api/v1/state", stateHandler)
	mux.Handle("/api/v1/devices", devicesHandler)
	mux.Handle("/api/v1/devices/{id}", devicesHandler)
	mux.Handle("/api/v1/models", modelsHandler)
	mux.Handle("/api/v1/models/{id}", modelsHandler)
	mux.Handle("/api/v1/sessions", sessionsHandler)
	mux.Handle("/api/v1/sessions/{id}", sessionsHandler)
	mux.Handle("/ws", wsHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, logger)}
	go func() {
		logger.Printf("http listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Printf("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Printf("http shutdown error: %v", err)
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack keeps the WebSocket upgrade working behind the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}
