package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/lazypower/revise/internal/agenda"
)

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

type agendaResp struct {
	UserID string        `json:"user_id"`
	Count  int           `json:"count"`
	Items  []agenda.Item `json:"items"`
}

func TestSchedule(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv, "POST", "/api/schedule", `{"start_date":"2027-11-05"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Dates []string `json:"dates"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	want := []string{"2027-11-12", "2027-12-05", "2028-02-05", "2028-05-05", "2028-11-05"}
	if !reflect.DeepEqual(resp.Dates, want) {
		t.Errorf("dates = %v, want %v", resp.Dates, want)
	}
}

func TestScheduleInvalid(t *testing.T) {
	srv := testServer(t)

	for _, body := range []string{`{"start_date":"soon"}`, `{}`, `not json`} {
		w := do(t, srv, "POST", "/api/schedule", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, w.Code)
		}
	}
}

func TestAddTopicAndAgenda(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv, "POST", "/api/users/1/topics", `{"topic":" Closures ","start_date":"2026-10-10"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", w.Code, w.Body.String())
	}

	var added struct {
		Added  []agenda.Item `json:"added"`
		Agenda []agenda.Item `json:"agenda"`
	}
	json.Unmarshal(w.Body.Bytes(), &added)
	if len(added.Added) != 5 {
		t.Fatalf("added %d items, want 5", len(added.Added))
	}
	if added.Added[0] != (agenda.Item{Topic: "Closures", Date: "2026-10-17"}) {
		t.Errorf("first item = %+v", added.Added[0])
	}
	// All five are on or after 2026-10-17.
	if len(added.Agenda) != 5 {
		t.Errorf("agenda has %d items, want 5", len(added.Agenda))
	}

	do(t, srv, "POST", "/api/users/1/topics", `{"topic":"Old","start_date":"2025-01-01"}`)

	w = do(t, srv, "GET", "/api/users/1/agenda", "")
	var resp agendaResp
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 5 {
		t.Errorf("future count = %d, want 5", resp.Count)
	}
	for i := 1; i < len(resp.Items); i++ {
		if resp.Items[i].Date < resp.Items[i-1].Date {
			t.Errorf("agenda not sorted at %d: %v", i, resp.Items)
		}
	}

	w = do(t, srv, "GET", "/api/users/1/agenda?all=true", "")
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 10 {
		t.Errorf("all count = %d, want 10", resp.Count)
	}
}

func TestAddTopicValidation(t *testing.T) {
	srv := testServer(t)

	cases := []struct {
		path string
		body string
		want int
	}{
		{"/api/users/1/topics", `{"topic":"","start_date":"2026-10-10"}`, http.StatusBadRequest},
		{"/api/users/1/topics", `{"topic":"Go","start_date":""}`, http.StatusBadRequest},
		{"/api/users/1/topics", `{"topic":"Go","start_date":"2026-02-31"}`, http.StatusBadRequest},
		{"/api/users/1/topics", `{`, http.StatusBadRequest},
		{"/api/users/99/topics", `{"topic":"Go","start_date":"2026-10-10"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		w := do(t, srv, "POST", tc.path, tc.body)
		if w.Code != tc.want {
			t.Errorf("%s %s: status = %d, want %d", tc.path, tc.body, w.Code, tc.want)
		}
	}
}

func TestUnknownUserAgenda(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv, "GET", "/api/users/99/agenda", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestEmptyAgenda(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv, "GET", "/api/users/2/agenda", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"items":[]`) {
		t.Errorf("body = %s, want empty items array", w.Body.String())
	}
}

func TestRemoveItem(t *testing.T) {
	srv := testServer(t)
	do(t, srv, "POST", "/api/users/3/topics", `{"topic":"Maps","start_date":"2026-10-10"}`)

	w := do(t, srv, "DELETE", "/api/users/3/agenda/items?topic=Maps&date=2026-11-10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Removed int           `json:"removed"`
		Agenda  []agenda.Item `json:"agenda"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Removed != 1 {
		t.Errorf("removed = %d, want 1", resp.Removed)
	}
	want := []agenda.Item{
		{Topic: "Maps", Date: "2026-10-17"},
		{Topic: "Maps", Date: "2027-01-10"},
		{Topic: "Maps", Date: "2027-04-10"},
		{Topic: "Maps", Date: "2027-10-10"},
	}
	if !reflect.DeepEqual(resp.Agenda, want) {
		t.Errorf("agenda = %v, want %v", resp.Agenda, want)
	}

	w = do(t, srv, "DELETE", "/api/users/3/agenda/items?topic=Maps", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing date: status = %d, want 400", w.Code)
	}
}

func TestClearAgenda(t *testing.T) {
	srv := testServer(t)
	do(t, srv, "POST", "/api/users/4/topics", `{"topic":"Sets","start_date":"2026-10-10"}`)

	w := do(t, srv, "DELETE", "/api/users/4/agenda", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	w = do(t, srv, "GET", "/api/users/4/agenda?all=1", "")
	var resp agendaResp
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 0 {
		t.Errorf("count after clear = %d, want 0", resp.Count)
	}
}

func TestExportICS(t *testing.T) {
	srv := testServer(t)
	do(t, srv, "POST", "/api/users/5/topics", `{"topic":"Queues","start_date":"2026-10-10"}`)

	w := do(t, srv, "GET", "/api/users/5/agenda.ics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	if got := strings.Count(body, "BEGIN:VEVENT"); got != 5 {
		t.Errorf("events = %d, want 5", got)
	}
	if !strings.Contains(body, "SUMMARY:Review: Queues") {
		t.Error("missing summary")
	}
}

func TestRemoveItemBlankTopic(t *testing.T) {
	srv := testServer(t)
	do(t, srv, "POST", "/api/users/3/topics", `{"topic":"Maps","start_date":"2026-10-10"}`)

	for _, q := range []string{
		"topic=%20%20%20&date=2026-11-10",
		"topic=Maps&date=%20",
	} {
		w := do(t, srv, "DELETE", "/api/users/3/agenda/items?"+q, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400; body: %s", q, w.Code, w.Body.String())
		}
	}

	w := do(t, srv, "GET", "/api/users/3/agenda", "")
	var resp agendaResp
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 5 {
		t.Errorf("count = %d, want 5 after rejected removals", resp.Count)
	}
}
