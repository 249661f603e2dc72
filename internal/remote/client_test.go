package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), srv.URL, "test-key")
}

// ============================================================
// Request shape
// ============================================================

func TestInsertHeaders(t *testing.T) {
	var gotHeaders http.Header
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		w.WriteHeader(http.StatusCreated)
	})

	err := c.InsertActivityLogs(context.Background(), []ActivityLogRow{{UserID: "u"}})
	if err != nil {
		t.Fatalf("InsertActivityLogs: %v", err)
	}

	if gotHeaders.Get("Content-Type") != "application/json" {
		t.Fatalf("Content-Type = %q", gotHeaders.Get("Content-Type"))
	}
	if gotHeaders.Get("Prefer") != "return=minimal" {
		t.Fatalf("Prefer = %q", gotHeaders.Get("Prefer"))
	}
	if gotHeaders.Get("apikey") != "test-key" {
		t.Fatalf("apikey = %q", gotHeaders.Get("apikey"))
	}
	// Without a session token the api key doubles as the bearer.
	if gotHeaders.Get("Authorization") != "Bearer test-key" {
		t.Fatalf("Authorization = %q", gotHeaders.Get("Authorization"))
	}
}

func TestSetTokenReplacesBearer(t *testing.T) {
	var auth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusCreated)
	})

	c.SetToken("session-token")
	c.InsertWorkUpdates(context.Background(), []WorkUpdateRow{{DeveloperID: "u"}})

	if auth != "Bearer session-token" {
		t.Fatalf("Authorization = %q, want session token", auth)
	}
}

func TestListActivityLogsQuery(t *testing.T) {
	var gotQuery map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode([]ActivityLogRow{})
	})

	_, err := c.ListActivityLogs(context.Background(), "user-1", 50)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		"select":  "*",
		"user_id": "eq.user-1",
		"order":   "log_timestamp.desc",
		"limit":   "50",
	}
	for k, v := range want {
		if len(gotQuery[k]) != 1 || gotQuery[k][0] != v {
			t.Fatalf("query %s = %v, want %q", k, gotQuery[k], v)
		}
	}
}

func TestLookupRefsQuery(t *testing.T) {
	var path string
	var gotQuery map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode([]Ref{{ID: "a", Title: "A"}})
	})

	refs, err := c.LookupRefs(context.Background(), CollectionMilestones, []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if path != "/rest/v1/sow_milestones" {
		t.Fatalf("path = %q", path)
	}
	if got := gotQuery["id"][0]; got != "in.(a,b)" {
		t.Fatalf("id filter = %q, want in.(a,b)", got)
	}
	if gotQuery["select"][0] != "id,title" {
		t.Fatalf("select = %q", gotQuery["select"][0])
	}
	if len(refs) != 1 || refs[0].Title != "A" {
		t.Fatalf("refs = %+v", refs)
	}
}

func TestRowDecoding(t *testing.T) {
	ts := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]ActivityLogRow{{
			ID:              "1",
			UserID:          "user-1",
			SessionID:       "sess-1",
			KeystrokeCount:  5,
			DurationSeconds: 60,
			LogTimestamp:    ts,
		}})
	})

	rows, err := c.ListActivityLogs(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0].KeystrokeCount != 5 || !rows[0].LogTimestamp.Equal(ts) {
		t.Fatalf("row decoded wrong: %+v", rows[0])
	}
}

// ============================================================
// Error mapping
// ============================================================

func TestUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := c.InsertActivityLogs(context.Background(), nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestErrorMessageFromBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"message": "duplicate key"})
	})

	err := c.InsertActivityLogs(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "duplicate key") {
		t.Fatalf("err = %v, want backend message", err)
	}
}

func TestErrorWithoutBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := c.InsertActivityLogs(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("err = %v, want status in message", err)
	}
}
