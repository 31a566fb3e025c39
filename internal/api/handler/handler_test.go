package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cardwatch/cardwatch-data/internal/alert"
	"github.com/cardwatch/cardwatch-data/internal/api"
	"github.com/cardwatch/cardwatch-data/internal/api/handler"
	"github.com/cardwatch/cardwatch-data/internal/cache"
	"github.com/cardwatch/cardwatch-data/internal/config"
	"github.com/cardwatch/cardwatch-data/internal/drop"
	"github.com/cardwatch/cardwatch-data/internal/listing"
	"github.com/cardwatch/cardwatch-data/internal/scan"
)

func testConfig() *config.Config {
	return &config.Config{
		CORSAllowOrigins: []string{"*"},
		ScanWorkers:      1,
	}
}

// newTestServer wires a router over a memory store with one static source.
func newTestServer(t *testing.T, raws []listing.Raw) (*httptest.Server, *drop.MemoryStore) {
	t.Helper()
	store := drop.NewMemoryStore()
	runner := scan.NewRunner(store, []scan.Source{scan.NewStaticSource("test-feed", raws)}, 1, nil)
	engine := alert.NewEngine(store, nil, nil)

	h := handler.New(handler.Deps{
		Store:  store,
		Runner: runner,
		Engine: engine,
		Cache:  cache.New(false),
		Config: testConfig(),
	})
	srv := httptest.NewServer(api.NewRouter(h, testConfig()))
	t.Cleanup(srv.Close)
	return srv, store
}

func getJSON(t *testing.T, url string, wantStatus int) map[string]interface{} {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s status = %d, want %d", url, resp.StatusCode, wantStatus)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return body
}

func TestListDrops(t *testing.T) {
	srv, store := newTestServer(t, nil)
	now := time.Now()
	target := now.Add(48 * time.Hour)
	store.Upsert(context.Background(), listing.Listing{
		Name: "Booster Box", Retailer: "TARGET", URL: "u1", TargetAt: &target,
	}, now)
	store.Upsert(context.Background(), listing.Listing{
		Name: "Elite Trainer Box", Retailer: "WALMART", URL: "u2",
	}, now)

	body := getJSON(t, srv.URL+"/api/v1/drops", http.StatusOK)
	if body["count"].(float64) != 2 {
		t.Errorf("count = %v, want 2", body["count"])
	}
	drops := body["drops"].([]interface{})
	first := drops[0].(map[string]interface{})
	if first["name"] != "Booster Box" {
		t.Errorf("first drop = %v, want dated drop ahead of undated", first["name"])
	}
}

func TestListDropsDefaultsToUpcoming(t *testing.T) {
	srv, store := newTestServer(t, nil)
	now := time.Now()
	d, _, _ := store.Upsert(context.Background(), listing.Listing{
		Name: "Released Box", Retailer: "TARGET", URL: "u1",
	}, now)
	store.SetStatus(context.Background(), d.ID, drop.StatusReleased)

	body := getJSON(t, srv.URL+"/api/v1/drops", http.StatusOK)
	if body["count"].(float64) != 0 {
		t.Errorf("default listing included non-upcoming drops: %v", body)
	}

	body = getJSON(t, srv.URL+"/api/v1/drops?status=released", http.StatusOK)
	if body["count"].(float64) != 1 {
		t.Errorf("released listing count = %v, want 1", body["count"])
	}
}

func TestListDropsInvalidStatus(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	body := getJSON(t, srv.URL+"/api/v1/drops?status=bogus", http.StatusBadRequest)
	if body["error"] == nil {
		t.Errorf("body = %v, want error payload", body)
	}
}

func TestGetDrop(t *testing.T) {
	srv, store := newTestServer(t, nil)
	now := time.Now()
	d, _, _ := store.Upsert(context.Background(), listing.Listing{
		Name: "Booster Box", Retailer: "TARGET", URL: "u1",
	}, now)
	store.MarkNotified(context.Background(), d.ID, drop.TierSameDay, now)

	body := getJSON(t, fmt.Sprintf("%s/api/v1/drops/%d", srv.URL, d.ID), http.StatusOK)
	got := body["drop"].(map[string]interface{})
	if got["name"] != "Booster Box" {
		t.Errorf("drop = %v", got)
	}
	notifications := body["notifications"].([]interface{})
	if len(notifications) != 1 {
		t.Errorf("notifications = %v, want the recorded firing", notifications)
	}
}

func TestGetDropNotFound(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	getJSON(t, srv.URL+"/api/v1/drops/9999", http.StatusNotFound)
	getJSON(t, srv.URL+"/api/v1/drops/not-a-number", http.StatusBadRequest)
}

func TestGetStats(t *testing.T) {
	srv, store := newTestServer(t, nil)
	now := time.Now()
	store.Upsert(context.Background(), listing.Listing{Name: "A", Retailer: "TARGET", URL: "u1"}, now)
	store.Upsert(context.Background(), listing.Listing{Name: "B", Retailer: "TARGET", URL: "u2"}, now)
	store.Upsert(context.Background(), listing.Listing{Name: "C", Retailer: "WALMART", URL: "u3"}, now)

	body := getJSON(t, srv.URL+"/api/v1/stats", http.StatusOK)
	stats := body["stats"].(map[string]interface{})
	if stats["total_drops"].(float64) != 3 {
		t.Errorf("total_drops = %v, want 3", stats["total_drops"])
	}
	byRetailer := stats["by_retailer"].(map[string]interface{})
	if byRetailer["TARGET"].(float64) != 2 {
		t.Errorf("by_retailer = %v", byRetailer)
	}
}

func TestTriggerScan(t *testing.T) {
	srv, store := newTestServer(t, []listing.Raw{
		{Name: "Booster Box", Retailer: "TARGET", URL: "u1", Price: "$161.99"},
		{Name: "", URL: "u2"}, // rejected
	})

	resp, err := http.Post(srv.URL+"/api/v1/scan", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /scan: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["scanned_count"].(float64) != 2 {
		t.Errorf("scanned_count = %v, want 2", body["scanned_count"])
	}
	if body["new_drops"].(float64) != 1 {
		t.Errorf("new_drops = %v, want 1", body["new_drops"])
	}
	if body["rejected_count"].(float64) != 1 {
		t.Errorf("rejected_count = %v, want 1", body["rejected_count"])
	}

	stats, _ := store.Stats(context.Background())
	if stats.Total != 1 {
		t.Errorf("store holds %d drops after scan, want 1", stats.Total)
	}
}

func TestGetAlertsPreviewIsReadOnly(t *testing.T) {
	srv, store := newTestServer(t, nil)
	now := time.Now()
	target := now.Add(30 * time.Minute)
	d, _, _ := store.Upsert(context.Background(), listing.Listing{
		Name: "Booster Box", Retailer: "TARGET", URL: "u1", TargetAt: &target,
	}, now)

	body := getJSON(t, srv.URL+"/api/v1/alerts", http.StatusOK)
	if body["count"].(float64) != 1 {
		t.Fatalf("count = %v, want 1 pending decision", body["count"])
	}

	// Preview twice: nothing is recorded, so the decision stays pending.
	body = getJSON(t, srv.URL+"/api/v1/alerts", http.StatusOK)
	if body["count"].(float64) != 1 {
		t.Errorf("second preview count = %v, want still 1", body["count"])
	}
	events, _ := store.Events(context.Background(), d.ID)
	if len(events) != 0 {
		t.Errorf("preview recorded events: %v", events)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	body := getJSON(t, srv.URL+"/health/", http.StatusOK)
	if body["status"] != "healthy" {
		t.Errorf("health = %v", body)
	}

	// Memory-backed server reports the in-memory store as healthy.
	body = getJSON(t, srv.URL+"/health/db", http.StatusOK)
	if body["database"] != "in-memory" {
		t.Errorf("health/db = %v", body)
	}
}
