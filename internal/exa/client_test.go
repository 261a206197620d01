package exa

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestSearch_SendsRequestAndDecodes(t *testing.T) {
	var got SearchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"requestId":"r1","results":[{"id":"x1","url":"https://acme.com/jobs/1","title":"Analyst at Acme","highlights":["one","two"]}]}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", srv.URL)
	results, err := c.Search(context.Background(), SearchRequest{
		Query:      "venture capital jobs hiring",
		NumResults: 500,
		Contents:   Contents{Text: true, Highlights: true},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got.NumResults != MaxResults {
		t.Errorf("NumResults = %d, want clamp to %d", got.NumResults, MaxResults)
	}
	if got.Type != "auto" || !got.Contents.Highlights {
		t.Errorf("unexpected request %+v", got)
	}
	if len(results) != 1 || results[0].ID != "x1" || len(results[0].Highlights) != 2 {
		t.Errorf("unexpected results %+v", results)
	}
}

func TestSearch_RetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	results, err := NewClientWithBaseURL("k", srv.URL).Search(context.Background(), SearchRequest{Query: "q"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %d", len(results))
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestSearch_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	if _, err := NewClientWithBaseURL("k", srv.URL).Search(context.Background(), SearchRequest{Query: "q"}); err == nil {
		t.Fatal("expected error on 401")
	}
}

func TestSearch_NoAPIKey(t *testing.T) {
	_, err := NewClient("").Search(context.Background(), SearchRequest{Query: "q"})
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}
