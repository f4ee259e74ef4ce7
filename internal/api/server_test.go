package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"mm_sim/internal/domain"
	"mm_sim/internal/infra"
	"mm_sim/internal/infra/storage"
	"mm_sim/internal/service"
)

type fakeHub struct{ clients int }

func (h *fakeHub) ServeHTTP(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }
func (h *fakeHub) Clients() int                                       { return h.clients }

func newTestServer(t *testing.T, withStore bool) (*Server, *storage.Storage) {
	t.Helper()
	cfg := infra.DefaultConfig()
	cfg.Simulation.Intervals = 5
	cfg.Simulation.Seed = 3
	cfg.Logging.RunLog = false
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	var store *storage.Storage
	var repo domain.RunRepository
	if withStore {
		s, err := storage.NewStorage(filepath.Join(t.TempDir(), "api.db"))
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { s.Close() })
		store, repo = s, s
	}

	metrics := &infra.Metrics{}
	svc := service.NewRunService(cfg, repo, nil, metrics, quiet)
	return NewServer(svc, repo, &fakeHub{clients: 2}, metrics, WithLogger(quiet)), store
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t, false)
	rec := do(t, srv, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "ok" || body["stream_clients"] != float64(2) {
		t.Errorf("Unexpected health body: %v", body)
	}
}

func TestServer_RunLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, true)

	rec := do(t, srv, http.MethodPost, "/runs", `{"strategy":"simple","intervals":4}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID        string `json:"id"`
		Intervals int    `json:"intervals"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("Invalid body: %v", err)
	}
	if created.ID == "" || created.Intervals != 4 {
		t.Errorf("Unexpected run: %+v", created)
	}

	rec = do(t, srv, http.MethodGet, "/runs", "")
	var runs []domain.RunRecord
	json.Unmarshal(rec.Body.Bytes(), &runs)
	if len(runs) != 1 || runs[0].ID != created.ID {
		t.Errorf("Expected the stored run in the list, got %+v", runs)
	}

	if rec = do(t, srv, http.MethodGet, "/runs/"+created.ID, ""); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for get, got %d", rec.Code)
	}

	if rec = do(t, srv, http.MethodDelete, "/runs/"+created.ID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204 for delete, got %d", rec.Code)
	}
	if rec = do(t, srv, http.MethodDelete, "/runs/"+created.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for second delete, got %d", rec.Code)
	}
	if rec = do(t, srv, http.MethodGet, "/runs/"+created.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected deleted run to be gone from the cache, got %d", rec.Code)
	}
}

func TestServer_RunErrors(t *testing.T) {
	srv, _ := newTestServer(t, false)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"Malformed", `{"strategy":`, http.StatusBadRequest},
		{"UnknownStrategy", `{"strategy":"nope"}`, http.StatusBadRequest},
		{"BadIntervals", `{"intervals":-3}`, http.StatusBadRequest},
		{"TooManyIntervals", `{"intervals":2000000000}`, http.StatusBadRequest},
		{"BadParams", `{"strategy":"sma","params":{"short":5,"long":2}}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/runs", tt.body)
			if rec.Code != tt.want {
				t.Errorf("Expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error == "" {
				t.Errorf("Expected an error body, got %s", rec.Body.String())
			}
		})
	}
}

func TestServer_WithoutStore(t *testing.T) {
	srv, _ := newTestServer(t, false)

	if rec := do(t, srv, http.MethodPost, "/runs", ""); rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201 with config defaults, got %d", rec.Code)
	}

	rec := do(t, srv, http.MethodGet, "/runs", "")
	var runs []domain.RunRecord
	json.Unmarshal(rec.Body.Bytes(), &runs)
	if len(runs) != 1 || len(runs[0].IntervalValues) != 0 {
		t.Errorf("Expected one cached summary without intervals, got %+v", runs)
	}

	if rec := do(t, srv, http.MethodGet, "/runs/missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodDelete, "/runs/x", ""); rec.Code != http.StatusNotImplemented {
		t.Errorf("Expected 501 without storage, got %d", rec.Code)
	}
}

func TestServer_MetricsAndStream(t *testing.T) {
	srv, _ := newTestServer(t, false)
	do(t, srv, http.MethodPost, "/runs", "")

	rec := do(t, srv, http.MethodGet, "/metrics", "")
	var snap map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("Invalid metrics body: %v", err)
	}
	if len(snap) == 0 {
		t.Error("Expected metrics fields")
	}

	if rec := do(t, srv, http.MethodGet, "/ws", ""); rec.Code != http.StatusTeapot {
		t.Errorf("Expected /ws to reach the hub, got %d", rec.Code)
	}
}

func TestServer_CORS(t *testing.T) {
	srv, _ := newTestServer(t, false)
	srv = NewServer(srv.runner, nil, nil, nil, WithAllowedOrigins([]string{"http://localhost:3000"}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Expected allowed origin header, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no CORS header for other origins, got %q", got)
	}
}
