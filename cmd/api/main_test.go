package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/app/bootstrap"
	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

func TestNewServerUsesConfiguredPort(t *testing.T) {
	cfg := &appconfig.Config{Port: "9091"}
	srv := newServer(cfg, http.NotFoundHandler())
	if srv.Addr != ":9091" {
		t.Fatalf("expected :9091, got %s", srv.Addr)
	}
	if srv.ReadTimeout != 15*time.Second || srv.IdleTimeout != 60*time.Second {
		t.Fatalf("unexpected timeouts: read=%s idle=%s", srv.ReadTimeout, srv.IdleTimeout)
	}
}

func TestServerExposesMetrics(t *testing.T) {
	logger := logging.NewWithWriter("error", io.Discard)
	cfg := &appconfig.Config{
		Port:               "0",
		StoreBackend:       appconfig.StoreMemory,
		EventsBackend:      appconfig.EventsNone,
		EmailProvider:      appconfig.EmailNone,
		SeedCatalog:        true,
		TransactionTimeout: time.Second,
	}
	clients, closeClients, err := bootstrap.OpenClients(context.Background(), cfg, logger, nil)
	if err != nil {
		t.Fatalf("open clients: %v", err)
	}
	defer closeClients()

	app, err := bootstrap.NewApp(context.Background(), cfg, clients, logger)
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	defer app.Close()

	srv := httptest.NewServer(newServer(cfg, app.Handler).Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Fatalf("expected runtime collectors to be exported")
	}
}
