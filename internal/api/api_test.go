package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashishact/ramble/internal/api"
	"github.com/ashishact/ramble/internal/store"
)

// stubIngester records calls and returns a fixed unit.
type stubIngester struct {
	st    store.Store
	err   error
	calls int
}

func (s *stubIngester) Ingest(ctx context.Context, sessionID, speaker, text string) (*store.Unit, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	u := &store.Unit{
		ID:        "unit-1",
		SessionID: sessionID,
		Speaker:   speaker,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.st.CreateUnit(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func newServer(t *testing.T) (*http.ServeMux, *store.MemStore, *stubIngester) {
	t.Helper()
	st := store.NewMemStore()
	ing := &stubIngester{st: st}
	mux := http.NewServeMux()
	api.New(st, ing, nil).Register(mux)
	return mux, st, ing
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("")
	} else {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func TestCreateUnit_Accepted(t *testing.T) {
	t.Parallel()
	mux, _, ing := newServer(t)

	rec, body := doJSON(t, mux, "POST", "/v1/units",
		`{"session_id": "sess-1", "speaker": "alice", "text": "We flew to Paris."}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	if body["unit_id"] != "unit-1" {
		t.Errorf("unit_id = %v, want unit-1", body["unit_id"])
	}
	if ing.calls != 1 {
		t.Errorf("ingester calls = %d, want 1", ing.calls)
	}
}

func TestCreateUnit_RequiresFields(t *testing.T) {
	t.Parallel()
	mux, _, ing := newServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing session", `{"text": "hello"}`},
		{"missing text", `{"session_id": "sess-1"}`},
		{"bad json", `{not json`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := doJSON(t, mux, "POST", "/v1/units", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
	if ing.calls != 0 {
		t.Errorf("ingester should not be called for invalid requests, got %d calls", ing.calls)
	}
}

func TestCreateUnit_IngestFailure(t *testing.T) {
	t.Parallel()
	mux, _, ing := newServer(t)
	ing.err = errors.New("store unavailable")

	rec, _ := doJSON(t, mux, "POST", "/v1/units",
		`{"session_id": "sess-1", "text": "hello"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestGetUnit_WithSpansAndClaims(t *testing.T) {
	t.Parallel()
	mux, st, _ := newServer(t)
	ctx := context.Background()

	unit := &store.Unit{ID: "unit-7", SessionID: "sess-1", Text: "I think we left.", PreprocessedText: "I think we left."}
	if err := st.CreateUnit(ctx, unit); err != nil {
		t.Fatal(err)
	}
	if err := st.CreateSpans(ctx, []*store.Span{
		{ID: "span-1", UnitID: "unit-7", Kind: store.SpanHedging, Start: 2, End: 7, Text: "think"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := st.CreateClaims(ctx, []*store.Claim{
		{ID: "claim-1", UnitID: "unit-7", Text: "we left", Polarity: "assert", Confidence: 0.8, EntityIDs: []string{"ent-1"}},
	}); err != nil {
		t.Fatal(err)
	}

	rec, body := doJSON(t, mux, "GET", "/v1/units/unit-7", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	spans, _ := body["spans"].([]any)
	if len(spans) != 1 {
		t.Errorf("spans = %v, want 1 span", body["spans"])
	}
	claims, _ := body["claims"].([]any)
	if len(claims) != 1 {
		t.Errorf("claims = %v, want 1 claim", body["claims"])
	}
}

func TestGetUnit_NotFound(t *testing.T) {
	t.Parallel()
	mux, _, _ := newServer(t)
	rec, _ := doJSON(t, mux, "GET", "/v1/units/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetUnitEvents(t *testing.T) {
	t.Parallel()
	mux, st, _ := newServer(t)
	ctx := context.Background()

	if err := st.CreateUnit(ctx, &store.Unit{ID: "unit-3", SessionID: "sess-1", Text: "hi"}); err != nil {
		t.Fatal(err)
	}
	for _, typ := range []string{"unit:created", "unit:preprocessed"} {
		if err := st.RecordEvent(ctx, &store.EventRecord{UnitID: "unit-3", Type: typ, Payload: []byte(`{"unitId":"unit-3"}`)}); err != nil {
			t.Fatal(err)
		}
	}

	rec, body := doJSON(t, mux, "GET", "/v1/units/unit-3/events", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	events, _ := body["events"].([]any)
	if len(events) != 2 {
		t.Fatalf("events = %v, want 2", body["events"])
	}
	first, _ := events[0].(map[string]any)
	if first["type"] != "unit:created" {
		t.Errorf("first event type = %v, want unit:created", first["type"])
	}
}

func TestGetSessionUnits(t *testing.T) {
	t.Parallel()
	mux, st, _ := newServer(t)
	ctx := context.Background()

	for _, id := range []string{"unit-a", "unit-b"} {
		if err := st.CreateUnit(ctx, &store.Unit{ID: id, SessionID: "sess-9", Text: "x"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.CreateUnit(ctx, &store.Unit{ID: "unit-c", SessionID: "other", Text: "y"}); err != nil {
		t.Fatal(err)
	}

	rec, body := doJSON(t, mux, "GET", "/v1/sessions/sess-9/units", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	units, _ := body["units"].([]any)
	if len(units) != 2 {
		t.Errorf("units = %v, want 2", body["units"])
	}
}

func TestGetEntity_ByNameAndAlias(t *testing.T) {
	t.Parallel()
	mux, st, _ := newServer(t)
	ctx := context.Background()

	if err := st.CreateEntity(ctx, &store.Entity{ID: "ent-1", Name: "Paris", Type: "place", Aliases: []string{"Pariz"}}); err != nil {
		t.Fatal(err)
	}

	rec, body := doJSON(t, mux, "GET", "/v1/entities/Paris", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["id"] != "ent-1" {
		t.Errorf("id = %v, want ent-1", body["id"])
	}

	rec, _ = doJSON(t, mux, "GET", "/v1/entities/Atlantis", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown entity status = %d, want 404", rec.Code)
	}
}

func TestGetClaims_EntityFilter(t *testing.T) {
	t.Parallel()
	mux, st, _ := newServer(t)
	ctx := context.Background()

	if err := st.CreateClaims(ctx, []*store.Claim{
		{ID: "claim-1", UnitID: "u1", Text: "a", Polarity: "assert", EntityIDs: []string{"ent-1"}},
		{ID: "claim-2", UnitID: "u1", Text: "b", Polarity: "assert", EntityIDs: []string{"ent-2"}},
	}); err != nil {
		t.Fatal(err)
	}

	rec, body := doJSON(t, mux, "GET", "/v1/claims?entity=ent-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	claims, _ := body["claims"].([]any)
	if len(claims) != 1 {
		t.Fatalf("filtered claims = %v, want 1", body["claims"])
	}

	rec, body = doJSON(t, mux, "GET", "/v1/claims", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	claims, _ = body["claims"].([]any)
	if len(claims) != 2 {
		t.Errorf("all claims = %v, want 2", body["claims"])
	}
}
