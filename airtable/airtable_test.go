package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchRowsPagination(t *testing.T) {
	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.RawQuery)

		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}

		page := map[string]any{
			"records": []map[string]any{
				{"id": "rec1", "fields": map[string]any{"Name": "first"}},
			},
		}
		if r.URL.Query().Get("offset") == "" {
			page["offset"] = "cursor123"
		} else {
			page["records"] = []map[string]any{
				{"id": "rec2", "fields": map[string]any{"Name": "second"}},
			}
		}
		if err := json.NewEncoder(w).Encode(page); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := New(server.Client(), server.URL, "base1", "tok", "Europe/Copenhagen", "da-DK", testLogger())
	rows, err := client.FetchRows(context.Background(), "tbl1", "view1", CellFormatString)
	if err != nil {
		t.Fatalf("FetchRows() error: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("FetchRows() returned %d rows, want 2", len(rows))
	}
	if rows[0].ID != "rec1" || rows[1].ID != "rec2" {
		t.Errorf("row ids = %q, %q", rows[0].ID, rows[1].ID)
	}
	if rows[1].String("Name") != "second" {
		t.Errorf("second row Name = %q", rows[1].String("Name"))
	}

	if len(requests) != 2 {
		t.Fatalf("server saw %d requests, want 2", len(requests))
	}
	t.Logf("first request query: %s", requests[0])
}

func TestFetchRowsQueryParameters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("cellFormat"); got != "string" {
			t.Errorf("cellFormat = %q", got)
		}
		if got := q.Get("timeZone"); got != "Europe/Copenhagen" {
			t.Errorf("timeZone = %q", got)
		}
		if got := q.Get("userLocale"); got != "da-DK" {
			t.Errorf("userLocale = %q", got)
		}
		if got := q.Get("view"); got != "view1" {
			t.Errorf("view = %q", got)
		}
		if _, err := w.Write([]byte(`{"records":[]}`)); err != nil {
			t.Errorf("write response: %v", err)
		}
	}))
	defer server.Close()

	client := New(server.Client(), server.URL, "base1", "tok", "Europe/Copenhagen", "da-DK", testLogger())
	if _, err := client.FetchRows(context.Background(), "tbl1", "view1", CellFormatString); err != nil {
		t.Fatalf("FetchRows() error: %v", err)
	}
}

func TestFetchRowsRawFormatOmitsRenderingParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Has("cellFormat") || q.Has("timeZone") || q.Has("userLocale") {
			t.Errorf("raw fetch should not carry rendering params, got %q", r.URL.RawQuery)
		}
		if _, err := w.Write([]byte(`{"records":[]}`)); err != nil {
			t.Errorf("write response: %v", err)
		}
	}))
	defer server.Close()

	client := New(server.Client(), server.URL, "base1", "tok", "Europe/Copenhagen", "da-DK", testLogger())
	if _, err := client.FetchRows(context.Background(), "tbl1", "", CellFormatRaw); err != nil {
		t.Fatalf("FetchRows() error: %v", err)
	}
}

func TestFetchRowsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		if _, err := w.Write([]byte(`{"error":"NOT_AUTHORIZED"}`)); err != nil {
			t.Errorf("write response: %v", err)
		}
	}))
	defer server.Close()

	client := New(server.Client(), server.URL, "base1", "tok", "Europe/Copenhagen", "da-DK", testLogger())
	_, err := client.FetchRows(context.Background(), "tbl1", "", CellFormatString)
	if err == nil {
		t.Fatal("FetchRows() expected error")
	}
	if !IsFetchError(err) {
		t.Fatalf("expected fetch error, got %T: %v", err, err)
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatal("errors.As failed")
	}
	if fetchErr.Status != http.StatusForbidden {
		t.Errorf("Status = %d, want 403", fetchErr.Status)
	}
	if fetchErr.Body != `{"error":"NOT_AUTHORIZED"}` {
		t.Errorf("Body = %q", fetchErr.Body)
	}
}

func TestFetchRowsClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		if _, err := w.Write([]byte(`{"records":[]}`)); err != nil {
			t.Logf("write response: %v", err)
		}
	}))
	defer server.Close()

	// The caller-supplied client controls the deadline.
	client := New(&http.Client{Timeout: 10 * time.Millisecond}, server.URL, "base1", "tok", "Europe/Copenhagen", "da-DK", testLogger())
	if _, err := client.FetchRows(context.Background(), "tbl1", "", CellFormatString); err == nil {
		t.Fatal("FetchRows() expected timeout error")
	}
}
