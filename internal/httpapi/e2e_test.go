//go:build integration

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/joelkehle/macro-onboarding/internal/onboarding"
	"github.com/joelkehle/macro-onboarding/internal/store"
)

func call(t *testing.T, client *http.Client, method, url string, body any) (int, map[string]any) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		blob, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(blob)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s %s: %v", method, url, err)
	}
	return resp.StatusCode, out
}

// TestE2EOnboardingOverSQLite runs a full conversation through a real
// listener, restarts the server on the same database and reads the stored
// profile back.
func TestE2EOnboardingOverSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "onboarding.db")
	now := func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	client := &http.Client{Timeout: 10 * time.Second}

	start := func(p *fakeProvider) (*httptest.Server, *store.SQLiteStore) {
		db, err := store.NewSQLiteStore(dbPath)
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		engine := onboarding.NewEngine(p, onboarding.EngineConfig{Now: now})
		srv := httptest.NewServer(NewServer(Config{Engine: engine, Sessions: db, Profiles: db, Now: now}))
		return srv, db
	}

	srv, db := start(&fakeProvider{
		extractions: []string{fullExtraction, `{"macros_confirmed": true}`},
		reply:       "Any dietary restrictions?",
	})
	status, body := call(t, client, http.MethodPost, srv.URL+"/v1/onboarding/sessions", nil)
	if status != http.StatusCreated {
		t.Fatalf("start status=%d body=%v", status, body)
	}
	id, _ := body["session_id"].(string)
	turns := fmt.Sprintf("%s/v1/onboarding/sessions/%s/turns", srv.URL, id)

	for _, msg := range []string{"here are all my details", "that works"} {
		if status, body = call(t, client, http.MethodPost, turns, map[string]any{"message": msg}); status != http.StatusOK {
			t.Fatalf("turn %q status=%d body=%v", msg, status, body)
		}
	}
	if body["state"] != string(onboarding.StateCollectingDietary) {
		t.Fatalf("state before restart = %v", body["state"])
	}
	srv.Close()
	db.Close()

	srv, db = start(&fakeProvider{reply: "unused"})
	defer srv.Close()
	defer db.Close()

	status, body = call(t, client, http.MethodPost, turns, map[string]any{"message": "skip"})
	if status != http.StatusOK || body["is_complete"] != true {
		t.Fatalf("final turn status=%d body=%v", status, body)
	}

	status, body = call(t, client, http.MethodGet, srv.URL+"/v1/profiles/"+id, nil)
	if status != http.StatusOK {
		t.Fatalf("profile status=%d body=%v", status, body)
	}
	export, _ := body["db_export"].(map[string]any)
	profile, _ := export["profile"].(map[string]any)
	if profile["goal"] != onboarding.GoalLoseWeight {
		t.Fatalf("unexpected stored profile: %v", profile)
	}

	saved, err := db.GetProfile(context.Background(), id)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if saved.MetabolicProfile.DailyCalorieTarget <= 0 {
		t.Fatalf("metabolic profile not stored: %+v", saved.MetabolicProfile)
	}
}
