package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/e164/e164-go/internal/config"
	"github.com/e164/e164-go/pkg/e164"
	"github.com/e164/e164-go/pkg/publishers"
)

// lookupAPI serves canned lookups and records request paths.
type lookupAPI struct {
	mu    sync.Mutex
	paths []string
}

func (a *lookupAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.paths = append(a.paths, r.RequestURI)
	a.mu.Unlock()

	if r.URL.Path == "/+16502530000" {
		_, _ = w.Write([]byte(`[{"prefix":"1650","iso3":"USA"}]`))
		return
	}
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"error":"Not Found"}`))
}

// eventSink collects events posted by the http publisher.
type eventSink struct {
	mu     sync.Mutex
	events []publishers.Event
}

func (s *eventSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var evt publishers.Event
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.events = append(s.events, evt)
	s.mu.Unlock()
	w.WriteHeader(http.StatusAccepted)
}

func testConfig(t *testing.T, apiURL, sinkURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	pubFile := filepath.Join(dir, "publishers.yaml")
	content := fmt.Sprintf("publishers:\n  - id: sink\n    type: http\n    http:\n      url: %q\n", sinkURL)
	if err := os.WriteFile(pubFile, []byte(content), 0o644); err != nil {
		t.Fatalf("write publishers file: %v", err)
	}

	return &config.Config{
		AppName:                "e164-test",
		LogLevel:               "debug",
		BaseURL:                apiURL,
		Timeout:                2 * time.Second,
		DefaultRegion:          "US",
		PublishersFile:         pubFile,
		StorageType:            "bbolt",
		BBoltPath:              filepath.Join(dir, "journal.db"),
		StorageTTL:             time.Hour,
		StorageCleanupInterval: time.Hour,
	}
}

func TestRunnerLookupJournalsAndPublishes(t *testing.T) {
	api := &lookupAPI{}
	apiSrv := httptest.NewServer(api)
	defer apiSrv.Close()
	sink := &eventSink{}
	sinkSrv := httptest.NewServer(sink)
	defer sinkSrv.Close()

	runner, err := NewRunner(context.Background(), testConfig(t, apiSrv.URL, sinkSrv.URL), nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	defer runner.Close()

	res := runner.Lookup(context.Background(), "(650) 253-0000")
	if !res.IsSuccess() {
		t.Fatalf("expected success, got %d %s", res.StatusCode, res.Error)
	}
	if res.Prefix != "1650" || res.ISO3 != "USA" {
		t.Fatalf("unexpected result %+v", res.Info)
	}
	if len(api.paths) != 1 || api.paths[0] != "/%2B16502530000" {
		t.Fatalf("unexpected api paths %v", api.paths)
	}

	entry, found, err := runner.journal.Last("+16502530000")
	if err != nil || !found {
		t.Fatalf("expected journal entry, found=%v err=%v", found, err)
	}
	if entry.StatusCode != 200 || entry.Prefix != "1650" {
		t.Fatalf("unexpected journal entry %+v", entry)
	}

	if len(sink.events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(sink.events))
	}
	evt := sink.events[0]
	if !evt.Success || evt.SanitizedNumber != "+16502530000" || evt.Data["prefix"] != "1650" {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestRunnerLookupFailureStillReported(t *testing.T) {
	apiSrv := httptest.NewServer(&lookupAPI{})
	defer apiSrv.Close()
	sink := &eventSink{}
	sinkSrv := httptest.NewServer(sink)
	defer sinkSrv.Close()

	runner, err := NewRunner(context.Background(), testConfig(t, apiSrv.URL, sinkSrv.URL), nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	defer runner.Close()

	res := runner.Lookup(context.Background(), "invalid-number")
	if res.StatusCode != http.StatusNotFound || res.Error != "Not Found" {
		t.Fatalf("unexpected result %d %q", res.StatusCode, res.Error)
	}
	if len(sink.events) != 1 || sink.events[0].Success {
		t.Fatalf("expected one failure event, got %+v", sink.events)
	}
}

func TestRunnerRejectsEmptyInputWithoutJournal(t *testing.T) {
	apiSrv := httptest.NewServer(&lookupAPI{})
	defer apiSrv.Close()
	sinkSrv := httptest.NewServer(&eventSink{})
	defer sinkSrv.Close()

	runner, err := NewRunner(context.Background(), testConfig(t, apiSrv.URL, sinkSrv.URL), nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	defer runner.Close()

	res := runner.Lookup(context.Background(), "abc")
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
	if _, found, _ := runner.journal.Last(""); found {
		t.Fatalf("empty input must not be journaled")
	}
}

func TestNewRunnerRequiresConfig(t *testing.T) {
	if _, err := NewRunner(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestNewRunnerWithoutPublishers(t *testing.T) {
	cfg := &config.Config{BaseURL: "https://e164.com/", StorageType: "none"}
	runner, err := NewRunner(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	if runner.fanout.Size() != 0 {
		t.Fatalf("expected no publishers")
	}
	if err := runner.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewRunnerDefaultsToNoopJournal(t *testing.T) {
	apiSrv := httptest.NewServer(&lookupAPI{})
	defer apiSrv.Close()

	client := e164.New(e164.Options{BaseURL: apiSrv.URL + "/"})
	runner := newRunner(client, publishers.NewFanout(nil), nil, "", nil)
	if runner.journal == nil {
		t.Fatalf("expected a journal")
	}

	res := runner.Lookup(context.Background(), "+14155552671")
	if res == nil {
		t.Fatalf("expected a result")
	}
	if _, found, err := runner.journal.Last("+14155552671"); err != nil || found {
		t.Fatalf("noop journal should record nothing, found=%v err=%v", found, err)
	}
	if err := runner.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
