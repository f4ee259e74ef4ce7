package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mm_sim/internal/service"
)

func TestBootstrap_Initialize(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := "simulation:\n  intervals: 3\n  seed: 5\nlogging:\n  dir: " + filepath.Join(dir, "logs") +
		"\n  run_log: false\nstorage:\n  path: " + filepath.Join(dir, "runs.db") + "\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	b := NewBootstrap()
	if err := b.Initialize(cfgPath, true); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.StartHub(ctx)

	res, err := b.Service.Run(service.RunRequest{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Intervals != 3 {
		t.Errorf("Expected 3 intervals from config, got %d", res.Intervals)
	}

	runs, err := b.Storage.ListRuns()
	if err != nil || len(runs) != 1 {
		t.Errorf("Expected one stored run, got %d, %v", len(runs), err)
	}

	rec := httptest.NewRecorder()
	b.Server().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/"+res.ID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 from the API, got %d", rec.Code)
	}
}

func TestBootstrap_BatchWithoutStream(t *testing.T) {
	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")
	cfgPath := filepath.Join(dir, "config.yaml")
	content := "simulation:\n  seed: 5\nlogging:\n  dir: " + logDir +
		"\n  run_log: false\nstorage:\n  path: " + filepath.Join(dir, "runs.db") + "\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	b := NewBootstrap()
	if err := b.Initialize(cfgPath, false); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer b.Close()

	if b.Hub != nil {
		t.Fatal("Expected no stream hub outside serve")
	}

	// 5 default runs emit far more events than the hub queue holds
	reqs := make([]service.RunRequest, 5)
	if _, err := b.Service.RunBatch(context.Background(), reqs, 2); err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}

	logs, err := os.ReadFile(filepath.Join(logDir, "app.log"))
	if err != nil {
		t.Fatalf("Expected app log: %v", err)
	}
	if n := strings.Count(string(logs), "Stream hub saturated"); n != 0 {
		t.Errorf("Expected no stream warnings, got %d", n)
	}

	rec := httptest.NewRecorder()
	b.Server().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected /ws to be absent without a hub, got %d", rec.Code)
	}
}

func TestBootstrap_InvalidConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(cfgPath, []byte("simulation:\n  intervals: -1\n"), 0644)

	if err := NewBootstrap().Initialize(cfgPath, false); err == nil {
		t.Error("Expected invalid configuration error")
	}
}
