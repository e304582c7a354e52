package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"care-ledger/internal/adapters/storage/memory"
	"care-ledger/internal/domain/events"
	"care-ledger/internal/domain/syncer"
	"care-ledger/internal/ports/remote"
	"care-ledger/internal/router"
)

// flakyRemote falla mientras offline sea true.
type flakyRemote struct {
	*memory.RemoteStore
	offline atomic.Bool
}

func (f *flakyRemote) Upsert(ctx context.Context, e remote.Event) error {
	if f.offline.Load() {
		return context.DeadlineExceeded
	}
	return f.RemoteStore.Upsert(ctx, e)
}

type testEnv struct {
	url    string
	ledger *events.Ledger
	remote *flakyRemote
}

func newEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()

	ledger, err := events.OpenLedger(context.Background(), memory.NewSnapshotStore(), events.Options{})
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	rem := &flakyRemote{RemoteStore: memory.NewRemoteStore()}
	reg := prometheus.NewRegistry()
	eng := syncer.NewEngine(ledger, rem, syncer.Options{
		Config:  syncer.Config{MaxParallel: 1, BreakerThreshold: 100},
		Metrics: syncer.NewMetrics(reg),
	})

	ts := httptest.NewServer(router.NewRouter(router.Options{
		Ledger:      ledger,
		Engine:      eng,
		Registry:    reg,
		AwakeWindow: func() float64 { return 120 },
		Now:         func() time.Time { return now },
	}))
	t.Cleanup(ts.Close)

	return &testEnv{url: ts.URL, ledger: ledger, remote: rem}
}

func TestHTTP_EndToEnd_OfflineLogThenSync(t *testing.T) {
	sleepEnd := time.Date(2025, 12, 22, 8, 0, 0, 0, time.UTC)
	env := newEnv(t, sleepEnd.Add(84*time.Minute))
	actor := "parent-1"

	// 1) Sin conexión se registran eventos igual
	env.remote.offline.Store(true)
	sleepID := createEvent(t, env.url, actor, map[string]any{
		"type":        "SLEEP",
		"occurred_at": sleepEnd.Format(time.RFC3339),
		"metadata":    map[string]any{"duration_minutes": 90},
	})
	feedID := createEvent(t, env.url, actor, map[string]any{
		"type":     "FEED",
		"metadata": map[string]any{"method": "bottle", "amount_ml": 120},
	})

	// 2) Una pasada offline no marca nada como sincronizado
	{
		st, body := doReq(t, env.url, "POST", "/sync", "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 sync, got %d body=%s", st, string(body))
		}
		var res struct {
			Synced int `json:"synced"`
			Failed int `json:"failed"`
		}
		_ = json.Unmarshal(body, &res)
		if res.Synced != 0 || res.Failed != 2 {
			t.Fatalf("expected 0 synced / 2 failed offline, got %+v", res)
		}
	}

	// 3) Predicción: 84 minutos despierto con ventana 120 => 0.7 BUILDING
	{
		st, body := doReq(t, env.url, "GET", "/prediction", "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 prediction, got %d body=%s", st, string(body))
		}
		var f struct {
			Pressure float64 `json:"pressure"`
			Zone     string  `json:"zone"`
		}
		_ = json.Unmarshal(body, &f)
		if f.Pressure != 0.7 || f.Zone != "BUILDING" {
			t.Fatalf("expected 0.7 BUILDING, got %v %s", f.Pressure, f.Zone)
		}
	}

	// 4) Vuelve la conexión: todo sube una vez
	env.remote.offline.Store(false)
	{
		st, body := doReq(t, env.url, "POST", "/sync", "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 sync, got %d body=%s", st, string(body))
		}
	}
	for _, id := range []string{sleepID, feedID} {
		if _, ok := env.remote.Get(id); !ok {
			t.Fatalf("expected %s in remote store", id)
		}
		if n := env.remote.Calls(id); n != 1 {
			t.Fatalf("expected exactly one accepted upsert for %s, got %d", id, n)
		}
	}
	if n := len(env.ledger.Unsynced()); n != 0 {
		t.Fatalf("expected ledger fully synced, got %d pending", n)
	}

	// 5) Listado: más reciente primero y marcado como sincronizado
	{
		st, body := doReq(t, env.url, "GET", "/events", "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 list, got %d", st)
		}
		var list []struct {
			ID       string `json:"id"`
			IsSynced bool   `json:"is_synced"`
		}
		_ = json.Unmarshal(body, &list)
		if len(list) != 2 || list[0].ID != feedID || !list[0].IsSynced {
			t.Fatalf("unexpected list: %s", string(body))
		}
	}

	// 6) Borrar un evento sincronizado propaga el borrado en el próximo sync
	{
		st, _ := doReq(t, env.url, "DELETE", "/events/"+feedID, actor, nil)
		if st != http.StatusNoContent {
			t.Fatalf("expected 204 delete, got %d", st)
		}
		st, body := doReq(t, env.url, "POST", "/sync", "", nil)
		if st != http.StatusOK || !strings.Contains(string(body), `"deleted":1`) {
			t.Fatalf("expected tombstone drained, got %d body=%s", st, string(body))
		}
		if _, ok := env.remote.Get(feedID); ok {
			t.Fatalf("expected %s removed from remote", feedID)
		}
	}

	// 7) Métricas del sync y del ledger
	{
		st, body := doReq(t, env.url, "GET", "/metrics", "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 metrics, got %d", st)
		}
		for _, want := range []string{"care_ledger_sync_requests_total", "care_ledger_events 1", "care_ledger_unsynced_events 0"} {
			if !strings.Contains(string(body), want) {
				t.Fatalf("metrics missing %q", want)
			}
		}
	}
}

func TestHTTP_CreateEvent_RequiresActor(t *testing.T) {
	env := newEnv(t, time.Now())

	st, _ := doReq(t, env.url, "POST", "/events", "", map[string]any{
		"type":     "DIAPER",
		"metadata": map[string]any{"kind": "wet"},
	})
	if st != http.StatusUnauthorized {
		t.Fatalf("expected 401 without actor, got %d", st)
	}
	if env.ledger.Len() != 0 {
		t.Fatalf("expected empty ledger")
	}
}

func TestHTTP_HealthAndSwagger(t *testing.T) {
	env := newEnv(t, time.Now())

	if st, body := doReq(t, env.url, "GET", "/health", "", nil); st != http.StatusOK || string(body) != "ok" {
		t.Fatalf("expected 200 ok, got %d %s", st, string(body))
	}
	if st, body := doReq(t, env.url, "GET", "/swagger/doc.json", "", nil); st != http.StatusOK || !strings.Contains(string(body), "/prediction") {
		t.Fatalf("expected swagger doc, got %d", st)
	}
}

func createEvent(t *testing.T, baseURL, actorID string, payload map[string]any) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/events", actorID, payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create event, got %d body=%s", st, string(body))
	}

	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("create event: missing id body=%s", string(body))
	}
	return resp.ID
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
