package main

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/postpilot/internal/enrich"
	"github.com/postpilot/internal/models"
)

func TestJobStatus(t *testing.T) {
	status := &jobStatus{}
	started := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)

	status.record(started, &enrich.Result{
		Posts:   []models.Post{{"text": "a"}, {"text": "b"}},
		Skipped: []enrich.Skip{{Index: 2, Err: errors.New("bad")}},
	}, nil)

	rec := httptest.NewRecorder()
	status.ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))

	var body struct {
		LastRun  time.Time `json:"last_run"`
		Enriched int       `json:"enriched"`
		Skipped  int       `json:"skipped"`
		Error    string    `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.LastRun.Equal(started) || body.Enriched != 2 || body.Skipped != 1 || body.Error != "" {
		t.Fatalf("unexpected status %+v", body)
	}

	status.record(started, nil, errors.New("tag unification failed"))
	if status.Error != "tag unification failed" || status.Enriched != 0 {
		t.Fatalf("failed run must reset counts, got %+v", status)
	}
}
